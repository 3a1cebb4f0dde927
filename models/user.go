package models

import (
	"time"

	"github.com/alwitt/halcyon/encryption"
)

const (
	// MinUsernameLen shortest accepted username
	MinUsernameLen = 3
	// MaxUsernameLen longest accepted username
	MaxUsernameLen = 128
	// MinSignupPasswordLen shortest accepted password at sign up
	MinSignupPasswordLen = 8
	// MinPasswordLen shortest accepted password when changing password
	MinPasswordLen = 5
)

// UserRecord a registered user
type UserRecord struct {
	// ID user ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`

	// Username unique login name
	Username string `json:"username" gorm:"column:username;not null;unique" validate:"required,min=3,max=128"`

	// PasswordHash hex(SHA256(key || salt))
	PasswordHash string `json:"-" gorm:"column:password_hash;not null" validate:"required,hexadecimal,len=64"`

	// Salt per-user hash salt, unique across users
	Salt string `json:"-" gorm:"column:salt;not null;unique" validate:"required"`

	// EncGitHubToken GitHub OAuth access token encrypted under the user key
	EncGitHubToken string `json:"-" gorm:"column:enc_gh_token"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

/*
Auth a session identity. It is reconstructed for every request, either from login
credentials or from a verified session cookie, and never persisted.
*/
type Auth struct {
	// ID user ID
	ID string `json:"id"`
	// Username login name
	Username string `json:"username"`
	// Key the user's field encryption key
	Key encryption.SymmetricKey `json:"-"`
}
