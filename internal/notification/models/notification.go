package models

import (
	"time"

	id "covergate/pkg/domain"
)

// Notification is a one-way notice appended on lifecycle transitions. The
// entities that trigger it never reference it back.
type Notification struct {
	ID        id.NotificationID `json:"id"`
	UserID    id.UserID         `json:"user_id"`
	Message   string            `json:"message"`
	Link      string            `json:"link"`
	IsRead    bool              `json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
}
