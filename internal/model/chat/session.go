package chat

import "time"

// Session status values.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// ValidStatus reports whether s is a known session status.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusClosed
}

// Session is one end-to-end support conversation between a visitor and
// the support team.
type Session struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ParticipantID    string    `gorm:"type:varchar(64);index;not null" json:"participantId"`
	ParticipantName  string    `gorm:"type:varchar(128)" json:"participantName,omitempty"`
	ParticipantEmail string    `gorm:"type:varchar(128)" json:"participantEmail,omitempty"`
	Status           string    `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `gorm:"index" json:"updatedAt"`
}

func (Session) TableName() string { return "chat_sessions" }
