// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// PlaceholderPrefix is prepended to the provider ID when a user is provisioned
// from an external identity before they have chosen a real username.
// Example: "user_104857223".
const PlaceholderPrefix = "user_"

// User represents a registered account.
//
// IdentityHash is a stable, provider-qualified identifier — sha256 over
// "provider:providerID" for external logins, "local:username" for local
// registrations. It is UNIQUE in the database, so one external account maps
// to exactly one row. We still generate our own internal string ID (xid)
// rather than keying rows by a third party's numbering scheme.
//
// Username is human-chosen and unique. It changes exactly once in a user's
// lifetime: when an externally provisioned account replaces its placeholder
// username during onboarding.
type User struct {
	ID           string    `json:"id"          db:"id"`
	Username     string    `json:"username"    db:"username"`
	IdentityHash string    `json:"-"           db:"identity_hash"`
	AvatarRef    string    `json:"avatarRef"   db:"avatar_url"` // empty until provisioned
	CreatedAt    time.Time `json:"memberSince" db:"created_at"`
}

// HasPlaceholderUsername reports whether the user still carries the synthetic
// username assigned at external provisioning and must complete onboarding.
func (u *User) HasPlaceholderUsername() bool {
	return strings.HasPrefix(u.Username, PlaceholderPrefix)
}
