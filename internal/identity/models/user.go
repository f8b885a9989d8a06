package models

import (
	"strings"
	"time"

	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
)

// User is the aggregate root for an authenticated principal. A user may
// originate from local credentials (email + password) or from the commerce
// platform (external customer ID or shop domain), so most identity fields
// are optional.
//
// Invariants:
//   - At least one of Email, Phone, ExternalID is present
//   - Email, when present, is lowercase and unique
//   - ExternalID, when present, is unique
//   - PasswordHash is never serialized in responses
//   - Users are never hard-deleted; deactivation clears Active
type User struct {
	ID    id.UserID `json:"id"`
	Email string    `json:"email,omitempty"`
	Phone string    `json:"phone,omitempty"`

	// PasswordHash is bcrypt output; empty for external-only identities.
	PasswordHash string `json:"-"`

	// Commerce platform linkage.
	ExternalID           string `json:"external_id,omitempty"`
	ExternalAccessToken  string `json:"-"`
	ExternalRefreshToken string `json:"-"`
	ShopDomain           string `json:"shop_domain,omitempty"`

	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	ProfilePhoto string `json:"profile_photo,omitempty"`

	EmailVerified bool `json:"email_verified"`
	PhoneVerified bool `json:"phone_verified"`
	Active        bool `json:"active"`

	Preferences Preferences `json:"preferences"`

	LastLoginAt time.Time `json:"last_login_at,omitzero"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Preferences holds notification opt-ins.
type Preferences struct {
	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`
}

// DefaultPreferences matches the registration defaults: email on, SMS off.
func DefaultPreferences() Preferences {
	return Preferences{EmailNotifications: true, SMSNotifications: false}
}

// NewUser constructs a user and enforces the identity invariant.
func NewUser(userID id.UserID, email, phone, externalID string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" && phone == "" && externalID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user needs an email, phone, or external identity")
	}
	return &User{
		ID:          userID,
		Email:       email,
		Phone:       phone,
		ExternalID:  externalID,
		Active:      true,
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NormalizeEmail lowercases and trims an email so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RecordLogin stamps the login time.
func (u *User) RecordLogin(now time.Time) {
	u.LastLoginAt = now
	u.UpdatedAt = now
}

// Deactivate soft-disables the account. Deactivation is the only removal
// path for identities.
func (u *User) Deactivate(now time.Time) {
	u.Active = false
	u.UpdatedAt = now
}
