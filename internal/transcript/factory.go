package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewStore picks a backend from dsn: empty keeps transcripts in memory,
// postgres:// uses PostgreSQL and sqlite://<path> uses a local file.
func NewStore(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return NewInMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	default:
		return nil, fmt.Errorf("unsupported transcript dsn scheme in %q", redactDSN(dsn))
	}
}

func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	return "..."
}

func prepare(record *Record, now func() time.Time) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now().UTC()
	}
}
