package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/go-page-analyzer/internal/models"
)

type URLRepository struct {
	db     *DB
	logger *zap.Logger
}

func CreateURLRepository(db *DB, logger *zap.Logger) *URLRepository {
	return &URLRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a URL and returns it with the id assigned by the
// database. A duplicate name yields ErrConflict.
func (r *URLRepository) Create(ctx context.Context, name string) (*models.URL, error) {
	u := models.URL{
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	err := r.db.QueryRowContext(ctx,
		"INSERT INTO urls (name, created_at) VALUES ($1, $2) RETURNING id;",
		u.Name, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}

		r.logger.Error("insert url", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("insert url: %w", err)
	}

	return &u, nil
}

// FindByName returns nil without an error when no URL has that name.
func (r *URLRepository) FindByName(ctx context.Context, name string) (*models.URL, error) {
	var u models.URL

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM urls WHERE name = $1;",
		name,
	).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find url by name: %w", err)
	}

	return &u, nil
}

func (r *URLRepository) FindByID(ctx context.Context, id int64) (*models.URL, error) {
	var u models.URL

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM urls WHERE id = $1;",
		id,
	).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find url by id: %w", err)
	}

	return &u, nil
}

// ListWithLatestCheck returns every URL, newest first, joined with the
// check that has the highest id for it.
func (r *URLRepository) ListWithLatestCheck(ctx context.Context) ([]models.URLWithLatestCheck, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.created_at, c.id, c.status_code, c.created_at
		FROM urls u
		LEFT JOIN url_checks c ON c.id = (
			SELECT MAX(id) FROM url_checks WHERE url_id = u.id
		)
		ORDER BY u.id DESC;`)
	if err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	defer rows.Close()

	urls := make([]models.URLWithLatestCheck, 0)

	for rows.Next() {
		var (
			item       models.URLWithLatestCheck
			checkID    sql.NullInt64
			statusCode sql.NullInt64
			checkedAt  sql.NullTime
		)

		err = rows.Scan(&item.ID, &item.Name, &item.CreatedAt, &checkID, &statusCode, &checkedAt)
		if err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}

		if checkID.Valid {
			item.LatestCheck = &models.Check{
				ID:         checkID.Int64,
				URLID:      item.ID,
				StatusCode: intPtr(statusCode),
				CreatedAt:  checkedAt.Time,
			}
		}

		urls = append(urls, item)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return urls, nil
}

func (r *URLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM urls;").Scan(&n); err != nil {
		return 0, fmt.Errorf("count urls: %w", err)
	}
	return n, nil
}

func (r *URLRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
