package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

// Repository is the cannon storage surface shared by the Postgres and SQLite
// backends.
type Repository interface {
	ListCannons(ctx context.Context, f cannon.Filter) ([]cannon.EnrichedCannon, error)
	GetCannon(ctx context.Context, id int) (*cannon.EnrichedCannon, error)
	UpsertCannons(ctx context.Context, cannons []cannon.Cannon) error
	InsertMeasurements(ctx context.Context, measurements []MeasurementRecord) error
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*SQLiteStore)(nil)
)

// Open picks a backend from the URL scheme: postgres:// and postgresql://
// use pgx, sqlite: and file: use the embedded SQLite store.
func Open(ctx context.Context, databaseURL string) (Repository, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return New(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite:"):
		path := strings.TrimPrefix(databaseURL, "sqlite:")
		path = strings.TrimPrefix(path, "//")
		if path == "" {
			path = ":memory:"
		}
		return NewSQLite(path)
	case strings.HasPrefix(databaseURL, "file:"):
		return NewSQLite(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", redact(databaseURL))
	}
}

// redact drops credentials before a URL reaches an error message.
func redact(databaseURL string) string {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if !ok {
		if i := strings.Index(databaseURL, ":"); i > 0 {
			return databaseURL[:i] + ":…"
		}
		return "…"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return scheme + "://" + rest
}
