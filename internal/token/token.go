package token

import (
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	mrand "math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Length is the fixed size of a minted token: a hex-encoded SHA-512 digest.
const Length = sha512.Size * 2

// New mints an endpoint token: a 128-char lowercase hex string derived from
// a fresh ULID plus the current nanosecond timestamp. Distinct per call with
// overwhelming probability; the storage layer's UNIQUE constraint is what
// actually guarantees no two endpoints share a token.
func New() string {
	t := time.Now()
	entropy := ulid.Monotonic(mrand.New(mrand.NewSource(t.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(t), entropy)

	var nanos [8]byte
	binary.BigEndian.PutUint64(nanos[:], uint64(t.UnixNano()))

	h := sha512.New()
	h.Write(id[:])
	h.Write(nanos[:])
	return hex.EncodeToString(h.Sum(nil))
}

// Blank reports whether the token is empty or whitespace-only. Callers check
// this before touching storage.
func Blank(tok string) bool {
	return strings.TrimSpace(tok) == ""
}
