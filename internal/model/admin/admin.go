package admin

import "time"

// Admin is a support-team account able to log into the dashboard.
type Admin struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"type:varchar(128)" json:"fullName"`
	PasswordHash string    `gorm:"type:varchar(128);not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Admin) TableName() string { return "admins" }
