package types

import "time"

// User is the owner of stored interactions. IDs are caller-supplied so the
// outer application can reuse its own identities.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}
