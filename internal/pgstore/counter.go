package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Counter issues per-day order numbers from a single daily_counters row.
// The upsert takes the row lock, so concurrent callers serialize and the
// sequence stays gapless; a new day resets it to 1.
type Counter struct {
	DB   *pgxpool.Pool
	Nowf func() time.Time // nil means time.Now
}

func (c *Counter) Next(ctx context.Context) (string, int, error) {
	now := time.Now
	if c.Nowf != nil {
		now = c.Nowf
	}
	today := now().Format("2006-01-02")

	var (
		date string
		seq  int
	)
	err := c.DB.QueryRow(ctx, `
		INSERT INTO daily_counters(name, day, seq) VALUES ('orders', $1, 1)
		ON CONFLICT (name) DO UPDATE
		SET seq = CASE WHEN daily_counters.day = EXCLUDED.day THEN daily_counters.seq + 1 ELSE 1 END,
		    day = EXCLUDED.day
		RETURNING day, seq`, today).Scan(&date, &seq)
	if err != nil {
		return "", 0, err
	}
	return date, seq, nil
}
