// internal/repository/sqlstore/activity.go
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"micropatrons/internal/domain"
	"micropatrons/internal/repository"
)

const activityViewSelect = `
	SELECT a.id, a.from_user_id, a.to_user_id, a.amount, a.timestamp,
		u1.username AS from_username,
		u2.username AS to_username`

const activityViewJoin = `
	FROM activity a
	JOIN users u1 ON a.from_user_id = u1.id
	JOIN users u2 ON a.to_user_id = u2.id`

// ActivityRepository implements repository.ActivityRepository over sqlx.
type ActivityRepository struct{}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository() repository.ActivityRepository {
	return &ActivityRepository{}
}

// CreateActivity appends a record using the provided DBExecutor.
func (r *ActivityRepository) CreateActivity(ctx context.Context, q repository.DBExecutor, activity *domain.Activity) error {
	query := q.Rebind(`INSERT INTO activity (id, from_user_id, to_user_id, amount, timestamp) VALUES (?, ?, ?, ?, ?)`)
	_, err := q.ExecContext(ctx, query,
		activity.ID,
		activity.FromUserID,
		activity.ToUserID,
		activity.Amount,
		activity.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// ListActivity returns a page of the global feed, newest first.
func (r *ActivityRepository) ListActivity(ctx context.Context, q repository.DBExecutor, limit, offset int) ([]domain.ActivityView, error) {
	views := []domain.ActivityView{}
	query := activityViewSelect + activityViewJoin + `
	ORDER BY a.timestamp DESC, a.id DESC
	LIMIT ? OFFSET ?`
	if err := q.SelectContext(ctx, &views, q.Rebind(query), limit, offset); err != nil {
		return nil, fmt.Errorf("failed to fetch activity: %w", err)
	}
	return views, nil
}

// ListActivityForAccount returns a page of records involving username.
func (r *ActivityRepository) ListActivityForAccount(ctx context.Context, q repository.DBExecutor, username string, limit, offset int) ([]domain.ActivityView, error) {
	views := []domain.ActivityView{}
	query := activityViewSelect + `,
		CASE WHEN u1.username = ? THEN 'sent' ELSE 'received' END AS type` + activityViewJoin + `
	WHERE u1.username = ? OR u2.username = ?
	ORDER BY a.timestamp DESC, a.id DESC
	LIMIT ? OFFSET ?`
	err := q.SelectContext(ctx, &views, q.Rebind(query), username, username, username, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity for account '%s': %w", username, err)
	}
	return views, nil
}

// ListActivityByAmount returns every record of exactly amount.
func (r *ActivityRepository) ListActivityByAmount(ctx context.Context, q repository.DBExecutor, amount int64) ([]domain.ActivityView, error) {
	views := []domain.ActivityView{}
	query := activityViewSelect + activityViewJoin + `
	WHERE a.amount = ?
	ORDER BY a.timestamp DESC, a.id DESC`
	if err := q.SelectContext(ctx, &views, q.Rebind(query), amount); err != nil {
		return nil, fmt.Errorf("failed to fetch activity of amount %d: %w", amount, err)
	}
	return views, nil
}

// ListActivitySince returns records stamped at or after since, oldest first.
func (r *ActivityRepository) ListActivitySince(ctx context.Context, q repository.DBExecutor, since time.Time) ([]domain.Activity, error) {
	records := []domain.Activity{}
	query := `SELECT a.id, a.from_user_id, a.to_user_id, a.amount, a.timestamp
	FROM activity a
	WHERE a.timestamp >= ?
	ORDER BY a.timestamp ASC, a.id ASC`
	if err := q.SelectContext(ctx, &records, q.Rebind(query), since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to fetch activity since %s: %w", since.Format(time.RFC3339), err)
	}
	return records, nil
}

// DeleteAll removes every record.
func (r *ActivityRepository) DeleteAll(ctx context.Context, q repository.DBExecutor) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM activity`); err != nil {
		return fmt.Errorf("failed to clear activity: %w", err)
	}
	return nil
}
