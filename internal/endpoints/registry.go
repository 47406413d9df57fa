package endpoints

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/farhan/webins/internal/models"
	"github.com/farhan/webins/internal/storage"
	"github.com/farhan/webins/internal/token"
)

// ErrTokenBlank rejects an empty or whitespace-only token before any storage
// query is made.
var ErrTokenBlank = errors.New("endpoint token cannot be blank")

// ErrEndpointNotUsable covers every non-usable lookup outcome: nonexistent,
// expired, or inactive.
var ErrEndpointNotUsable = errors.New("endpoint is either expired or deleted")

// createAttempts bounds the retry loop on token collision. A single retry
// should never happen in practice; hitting the bound means the entropy source
// is broken.
const createAttempts = 3

type Registry struct {
	store storage.Storage
	ttl   time.Duration
	log   zerolog.Logger
}

func NewRegistry(store storage.Storage, ttl time.Duration, log zerolog.Logger) *Registry {
	return &Registry{store: store, ttl: ttl, log: log}
}

// Create mints a token and persists a new Active endpoint expiring ttl from
// now. On a token collision the insert is retried with a fresh token.
func (r *Registry) Create(ctx context.Context) (*models.Endpoint, error) {
	now := time.Now().UTC()

	for attempt := 1; attempt <= createAttempts; attempt++ {
		ep := &models.Endpoint{
			Token:     token.New(),
			SingleUse: false,
			Status:    models.EndpointActive,
			ExpiresAt: now.Add(r.ttl),
			CreatedAt: now,
		}

		err := r.store.CreateEndpoint(ctx, ep)
		if err == nil {
			r.log.Info().Int64("endpoint_id", ep.ID).Time("expires_at", ep.ExpiresAt).Msg("endpoint created")
			return ep, nil
		}
		if errors.Is(err, storage.ErrTokenExists) {
			r.log.Warn().Int("attempt", attempt).Msg("token collision, retrying with fresh token")
			continue
		}
		return nil, fmt.Errorf("create endpoint: %w", err)
	}

	return nil, fmt.Errorf("create endpoint: token collision persisted after %d attempts", createAttempts)
}

// List returns every endpoint, newest first.
func (r *Registry) List(ctx context.Context) ([]models.Endpoint, error) {
	eps, err := r.store.ListEndpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	return eps, nil
}

// FindUsable resolves a token to its endpoint, requiring Active status and an
// unexpired expires_at. Blank tokens fail fast without a storage query.
func (r *Registry) FindUsable(ctx context.Context, tok string) (*models.Endpoint, error) {
	if token.Blank(tok) {
		return nil, ErrTokenBlank
	}

	ep, err := r.store.FindUsableEndpoint(ctx, tok, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("find endpoint: %w", err)
	}
	if ep == nil {
		return nil, ErrEndpointNotUsable
	}
	return ep, nil
}
