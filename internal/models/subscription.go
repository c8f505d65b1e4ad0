package models

import "time"

// Subscription holds a user's plan state and remaining AI-analysis credits.
// There is at most one row per user.
type Subscription struct {
	ID         uint       `gorm:"primarykey" json:"-"`
	UserID     string     `gorm:"uniqueIndex;not null" json:"user_id"`
	Plan       string     `json:"plan"`
	Credits    int        `gorm:"not null;default:0" json:"credits"`
	Active     bool       `gorm:"default:false" json:"active"`
	PaymentRef string     `json:"payment_ref,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Usable reports whether the subscription is active and unexpired at now.
func (s *Subscription) Usable(now time.Time) bool {
	if !s.Active {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}
