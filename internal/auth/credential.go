// Package auth provides login credentials, the external OAuth provider, and
// the session middleware.
//
// Both ways into the system — a bare local username and a verified external
// identity — normalize to the same pair (identity hash, display-name hint)
// consumed by the auth service. The hash is sha256 over a provider-qualified
// string, so it is stable, unique per account, and usable as a lookup key.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Credential is an authentication claim reduced to a normalized identity.
// Variants: LocalCredential (a chosen username) and ExternalIdentity (a
// verified third-party account).
type Credential interface {
	// IdentityHash returns the stable provider-qualified identifier stored
	// in users.identity_hash.
	IdentityHash() string
	// DisplayNameHint is the name to seed avatar generation with.
	DisplayNameHint() string
}

// LocalCredential is a bare username. Local login trusts the username alone;
// there is deliberately no secret here — a known weakness inherited from the
// source system, flagged rather than fixed so observable behavior matches.
type LocalCredential struct {
	Username string
}

func (c LocalCredential) IdentityHash() string {
	return hashIdentity("local", c.Username)
}

func (c LocalCredential) DisplayNameHint() string {
	return c.Username
}

// ExternalIdentity is a verified account at an OAuth provider. ProviderID is
// the provider's stable subject identifier (Google's "sub" claim).
type ExternalIdentity struct {
	Provider    string
	ProviderID  string
	DisplayName string
}

func (c ExternalIdentity) IdentityHash() string {
	return hashIdentity(c.Provider, c.ProviderID)
}

func (c ExternalIdentity) DisplayNameHint() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.ProviderID
}

func hashIdentity(provider, id string) string {
	sum := sha256.Sum256([]byte(provider + ":" + id))
	return hex.EncodeToString(sum[:])
}
