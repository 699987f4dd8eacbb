package querylog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manuasd05/weatherbot/internal/domain/chat"
	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

// PostgresLog persists fetch outcomes using pgx.
type PostgresLog struct {
	pool *pgxpool.Pool
}

// NewPostgresLog constructs the log.
func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

// Record inserts one fetch outcome.
func (l *PostgresLog) Record(ctx context.Context, city string, kind weather.Kind, at time.Time) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO weather_queries (id, city, kind, requested_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), city, string(kind), at)
	return err
}

// CountSince returns per-city request counts newer than the cutoff, most
// requested first.
func (l *PostgresLog) CountSince(ctx context.Context, cutoff time.Time, limit int) ([]chat.TrendingCity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.pool.Query(ctx, `
		SELECT city, COUNT(*) AS total
		FROM weather_queries
		WHERE requested_at >= $1
		GROUP BY city
		ORDER BY total DESC, city ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.TrendingCity
	for rows.Next() {
		var entry chat.TrendingCity
		if err := rows.Scan(&entry.City, &entry.Count); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

var _ chat.QueryLog = (*PostgresLog)(nil)
