// internal/domain/activity.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction tags an activity row relative to the account whose feed it is in.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Activity is the immutable audit record of one completed transfer.
type Activity struct {
	ID         string    `db:"id" json:"id"`                     // UUID
	FromUserID string    `db:"from_user_id" json:"from_user_id"` // Paying account
	ToUserID   string    `db:"to_user_id" json:"to_user_id"`     // Receiving account
	Amount     int64     `db:"amount" json:"amount"`             // Always > 0
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`       // Commit time, UTC
}

// NewActivity creates a new Activity stamped with the current time.
func NewActivity(fromUserID, toUserID string, amount int64) *Activity {
	return &Activity{
		ID:         uuid.NewString(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Amount:     amount,
		Timestamp:  time.Now().UTC(),
	}
}

// ActivityView is an Activity joined with both usernames for feeds.
type ActivityView struct {
	Activity
	FromUsername string    `db:"from_username" json:"from_username"`
	ToUsername   string    `db:"to_username" json:"to_username"`
	Type         Direction `db:"type" json:"type,omitempty"`
}

// Tag sets Type relative to username.
func (v *ActivityView) Tag(username string) {
	if v.FromUsername == username {
		v.Type = DirectionSent
	} else {
		v.Type = DirectionReceived
	}
}
