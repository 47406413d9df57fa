package storage

import (
	"context"
	"errors"
	"time"

	"github.com/farhan/webins/internal/models"
)

// ErrTokenExists is returned by CreateEndpoint when the minted token collides
// with one already persisted. The registry retries with a fresh token.
var ErrTokenExists = errors.New("endpoint token already exists")

type Storage interface {
	// Endpoints
	CreateEndpoint(ctx context.Context, ep *models.Endpoint) error
	ListEndpoints(ctx context.Context) ([]models.Endpoint, error)
	// FindUsableEndpoint returns the endpoint matching token with status
	// Active and expires_at >= now, or nil when no such endpoint exists.
	FindUsableEndpoint(ctx context.Context, token string, now time.Time) (*models.Endpoint, error)

	// Captures
	CreateCapture(ctx context.Context, c *models.Capture) error
	ListCapturesByEndpoint(ctx context.Context, endpointID int64) ([]models.Capture, error)

	// Stats
	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

type Stats struct {
	TotalEndpoints  int64 `json:"total_endpoints"`
	UsableEndpoints int64 `json:"usable_endpoints"`
	TotalCaptures   int64 `json:"total_captures"`
}
