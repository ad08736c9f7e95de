// Package storage persists run reports.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/neardup/internal/models"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Store defines run report persistence operations.
type Store interface {
	SaveRun(ctx context.Context, report *models.RunReport) error
	GetRun(ctx context.Context, id string) (*models.RunReport, error)
	ListRuns(ctx context.Context, offset, limit int) ([]models.RunSummary, error)
	DeleteRun(ctx context.Context, id string) error
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
