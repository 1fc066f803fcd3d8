// Package service holds the analyzer's use cases: registering URLs,
// listing them and running liveness checks.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/go-page-analyzer/internal/models"
	"github.com/atinyakov/go-page-analyzer/internal/repository"
)

const queryTimeout = 3 * time.Second

const (
	msgAdded        = "Page successfully added"
	msgExists       = "Page already exists"
	msgChecked      = "Page successfully checked"
	msgCheckFailed  = "An error occurred during the check"
	locationHome    = "/"
	locationURLList = "/urls"
)

type URLService struct {
	urls         URLStore
	checks       CheckStore
	prober       Prober
	logger       *zap.Logger
	recordFailed bool
}

// NewURL builds the service. When recordFailed is set, a probe that gets
// no response is stored as a check without a status code.
func NewURL(urls URLStore, checks CheckStore, prober Prober, logger *zap.Logger, recordFailed bool) *URLService {
	return &URLService{
		urls:         urls,
		checks:       checks,
		prober:       prober,
		logger:       logger,
		recordFailed: recordFailed,
	}
}

func (s *URLService) PingContext(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.urls.PingContext(ctx)
}

// AddURL validates and registers name. Validation problems and duplicates
// are reported through the returned outcome, not as errors.
func (s *URLService) AddURL(ctx context.Context, name string) (*models.Outcome, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return outcome(locationHome, models.SeverityError, ve.Msg), nil
		}
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	existing, err := s.urls.FindByName(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return outcome(locationURLList, models.SeverityInfo, msgExists), nil
	}

	created, err := s.urls.Create(ctx, normalized)
	if errors.Is(err, repository.ErrConflict) {
		s.logger.Info("url inserted concurrently", zap.String("name", normalized))
		return outcome(locationURLList, models.SeverityInfo, msgExists), nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("url added", zap.Int64("id", created.ID), zap.String("name", created.Name))
	return outcome(locationURLList, models.SeveritySuccess, msgAdded), nil
}

func (s *URLService) ListURLs(ctx context.Context) ([]models.URLWithLatestCheck, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.urls.ListWithLatestCheck(ctx)
}

// GetURL returns repository.ErrNotFound for an unknown id.
func (s *URLService) GetURL(ctx context.Context, id int64) (*models.URLDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := s.urls.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	checks, err := s.checks.ListForURL(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.URLDetails{URL: *u, Checks: checks}, nil
}

// RunCheck probes the URL with the given id and records the result.
// An unknown id yields repository.ErrNotFound and nothing is probed.
func (s *URLService) RunCheck(ctx context.Context, id int64) (*models.Outcome, error) {
	findCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	u, err := s.urls.FindByID(findCtx, id)
	cancel()
	if err != nil {
		return nil, err
	}

	location := fmt.Sprintf("%s/%d", locationURLList, id)
	res := s.prober.Check(ctx, u.Name)

	saveCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if !res.OK() {
		s.logger.Warn("check failed", zap.Int64("url_id", id), zap.Error(res.Err))

		if s.recordFailed {
			if _, err := s.checks.Create(saveCtx, id, nil); err != nil {
				return nil, err
			}
		}

		return outcome(location, models.SeverityError, msgCheckFailed), nil
	}

	status := res.StatusCode
	if _, err := s.checks.Create(saveCtx, id, &status); err != nil {
		return nil, err
	}

	return outcome(location, models.SeveritySuccess, msgChecked), nil
}

func (s *URLService) Stats(ctx context.Context) (*models.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	urls, err := s.urls.Count(ctx)
	if err != nil {
		return nil, err
	}

	checks, err := s.checks.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &models.Stats{URLs: urls, Checks: checks}, nil
}

func outcome(location string, severity models.Severity, text string) *models.Outcome {
	return &models.Outcome{
		Location: location,
		Flash:    &models.Flash{Severity: severity, Text: text},
	}
}
