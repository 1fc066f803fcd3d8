package service

import (
	"context"

	"github.com/atinyakov/go-page-analyzer/internal/checker"
	"github.com/atinyakov/go-page-analyzer/internal/models"
)

// URLStore persists registered URLs.
type URLStore interface {
	Create(context.Context, string) (*models.URL, error)
	FindByName(context.Context, string) (*models.URL, error)
	FindByID(context.Context, int64) (*models.URL, error)
	ListWithLatestCheck(context.Context) ([]models.URLWithLatestCheck, error)
	Count(context.Context) (int, error)
	PingContext(context.Context) error
}

// CheckStore persists probe results.
type CheckStore interface {
	Create(context.Context, int64, *int) (*models.Check, error)
	ListForURL(context.Context, int64) ([]models.Check, error)
	Count(context.Context) (int, error)
}

// Prober performs a single liveness probe.
type Prober interface {
	Check(context.Context, string) checker.Result
}

// URLServiceIface is what the transport layers depend on.
type URLServiceIface interface {
	AddURL(ctx context.Context, name string) (*models.Outcome, error)
	ListURLs(ctx context.Context) ([]models.URLWithLatestCheck, error)
	GetURL(ctx context.Context, id int64) (*models.URLDetails, error)
	RunCheck(ctx context.Context, id int64) (*models.Outcome, error)
	Stats(ctx context.Context) (*models.Stats, error)
	PingContext(ctx context.Context) error
}
