package users

import "time"

// User models a registered account. Passwords are stored as bcrypt hashes
// and never leave this package.
type User struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	Email        string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	DisplayName  string    `gorm:"column:display_name;size:150;not null" json:"display_name"`
	PasswordHash string    `gorm:"column:password_hash;size:100;not null" json:"-"`
	PostalCode   string    `gorm:"column:postal_code;size:20;not null;default:''" json:"postal_code"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}
