package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/go-page-analyzer/internal/models"
)

type CheckRepository struct {
	db     *DB
	logger *zap.Logger
}

func CreateCheckRepository(db *DB, logger *zap.Logger) *CheckRepository {
	return &CheckRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a check for urlID. A nil statusCode is stored as NULL.
func (r *CheckRepository) Create(ctx context.Context, urlID int64, statusCode *int) (*models.Check, error) {
	c := models.Check{
		URLID:      urlID,
		StatusCode: statusCode,
		CreatedAt:  time.Now().UTC(),
	}

	err := r.db.QueryRowContext(ctx,
		"INSERT INTO url_checks (url_id, status_code, created_at) VALUES ($1, $2, $3) RETURNING id;",
		c.URLID, nullInt(c.StatusCode), c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		r.logger.Error("insert check", zap.Int64("url_id", urlID), zap.Error(err))
		return nil, fmt.Errorf("insert check: %w", err)
	}

	return &c, nil
}

// ListForURL returns all checks of a URL, newest first.
func (r *CheckRepository) ListForURL(ctx context.Context, urlID int64) ([]models.Check, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, url_id, status_code, created_at FROM url_checks WHERE url_id = $1 ORDER BY id DESC;",
		urlID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	checks := make([]models.Check, 0)

	for rows.Next() {
		var (
			c      models.Check
			status sql.NullInt64
		)

		if err = rows.Scan(&c.ID, &c.URLID, &status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}

		c.StatusCode = intPtr(status)
		checks = append(checks, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return checks, nil
}

func (r *CheckRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM url_checks;").Scan(&n); err != nil {
		return 0, fmt.Errorf("count checks: %w", err)
	}
	return n, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
