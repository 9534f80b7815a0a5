package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cursor paging for the storefront's newest-first listings (products,
// orders). Pages key on (created_at, id) descending; the token handed to
// clients is opaque.

const (
	// DefaultLimit is the page size when the client does not ask for one.
	DefaultLimit = 25
	// MaxLimit caps how many rows any listing can request.
	MaxLimit = 100
)

// Params holds the raw paging inputs from controllers.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor names the row a page ended on.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Token renders the cursor as the opaque string handed to clients.
func (c Cursor) Token() string {
	payload := fmt.Sprintf("%d.%s", c.CreatedAt.UTC().UnixNano(), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Window is a validated page request ready to apply to a listing query.
type Window struct {
	Limit int
	// After points at the last row of the previous page, nil on page one.
	After *Cursor
}

// Open validates raw params into a Window, clamping the limit and
// decoding the cursor token.
func Open(p Params) (Window, error) {
	after, err := decodeToken(p.Cursor)
	if err != nil {
		return Window{}, err
	}
	limit := p.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Window{Limit: limit, After: after}, nil
}

// FetchLimit over-fetches one row so Clip can tell whether a further page
// exists without a second query.
func (w Window) FetchLimit() int {
	return w.Limit + 1
}

// Clip reports how many of n fetched rows belong to this page and whether
// another page follows.
func (w Window) Clip(n int) (int, bool) {
	if n > w.Limit {
		return w.Limit, true
	}
	return n, false
}

func decodeToken(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{
		CreatedAt: time.Unix(0, nanos).UTC(),
		ID:        id,
	}, nil
}
