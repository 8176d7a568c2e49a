package domain

import "time"

// Item is the single persisted resource managed by this service.
//
// The primary key is a server-assigned UUID string rather than an
// auto-increment integer: deleted ids must never be reused, and deletes are
// permanent (no soft-delete column), so gorm.Model does not fit here.
type Item struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"not null" json:"description"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}
