package channels

import (
	"errors"
	"fmt"
)

// DefaultQuota is the number of symbols the exchange accepts per connection.
// See https://www.bitfinex.com/posts/267
const DefaultQuota = 50

// ErrQuotaExceeded is returned when a subscribe attempt would exceed the
// per-connection channel ceiling.
var ErrQuotaExceeded = errors.New("subscription quota exceeded")

// Guard checks the directory size against a fixed ceiling before any new
// subscribe command goes out. Check and subscribe are not atomic: two
// concurrent subscribes can both pass and overrun the remote quota, and the
// remote side remains the final arbiter.
type Guard struct {
	directory *Directory
	limit     int
}

// NewGuard builds a guard over the directory. A non-positive limit falls
// back to DefaultQuota.
func NewGuard(directory *Directory, limit int) *Guard {
	if limit <= 0 {
		limit = DefaultQuota
	}
	return &Guard{directory: directory, limit: limit}
}

// EnsureCapacity fails once the directory holds the ceiling count.
func (g *Guard) EnsureCapacity() error {
	if size := g.directory.Size(); size >= g.limit {
		return fmt.Errorf("%w: %d of %d channels in use", ErrQuotaExceeded, size, g.limit)
	}
	return nil
}

// Limit returns the configured ceiling.
func (g *Guard) Limit() int {
	return g.limit
}
