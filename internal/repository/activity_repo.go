// internal/repository/activity_repo.go
package repository

import (
	"context"
	"time"

	"micropatrons/internal/domain"
)

// ActivityRepository defines the interface for activity data operations.
type ActivityRepository interface {
	// CreateActivity appends a record using the provided DBExecutor.
	CreateActivity(ctx context.Context, q DBExecutor, activity *domain.Activity) error
	// ListActivity returns the global feed, newest first.
	ListActivity(ctx context.Context, q DBExecutor, limit, offset int) ([]domain.ActivityView, error)
	// ListActivityForAccount returns records where username is either party,
	// newest first, tagged sent/received.
	ListActivityForAccount(ctx context.Context, q DBExecutor, username string, limit, offset int) ([]domain.ActivityView, error)
	// ListActivityByAmount returns every record of exactly amount, newest first.
	ListActivityByAmount(ctx context.Context, q DBExecutor, amount int64) ([]domain.ActivityView, error)
	// ListActivitySince returns records stamped at or after since, oldest first.
	ListActivitySince(ctx context.Context, q DBExecutor, since time.Time) ([]domain.Activity, error)
	// DeleteAll removes every record.
	DeleteAll(ctx context.Context, q DBExecutor) error
}
