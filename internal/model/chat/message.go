package chat

import "time"

// Sender types.
const (
	SenderUser  = "user"
	SenderAdmin = "admin"
)

// ValidSender reports whether s is a known sender type.
func ValidSender(s string) bool {
	return s == SenderUser || s == SenderAdmin
}

// Message is one persisted turn in a session transcript. Seq is the
// storage insertion sequence and breaks ties between messages created
// within the same clock tick; transcript order is (created_at, seq).
type Message struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ID         string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"id"`
	SessionID  string    `gorm:"type:varchar(36);index;not null" json:"sessionId"`
	SenderType string    `gorm:"type:varchar(16);not null" json:"senderType"`
	SenderID   *string   `gorm:"type:varchar(64)" json:"senderId"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"not null;default:false" json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Message) TableName() string { return "chat_messages" }
