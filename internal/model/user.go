package model

import "time"

// Identity is the dashboard user record, keyed by the Discord id the
// OAuth provider reports. Mutable profile fields are refreshed on every
// successful login.
type Identity struct {
	DiscordID      string     `json:"discordId"`
	Username       string     `json:"username"`
	Discriminator  string     `json:"discriminator,omitempty"`
	Avatar         string     `json:"avatar,omitempty"`
	Banner         string     `json:"banner,omitempty"`
	Email          string     `json:"email,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLogin      time.Time  `json:"lastLogin"`
	IsPremium      bool       `json:"premium"`
	PremiumTier    string     `json:"premiumTier,omitempty"`
	PremiumExpires *time.Time `json:"premiumExpires,omitempty"`
}

// DiscordProfile is the minimal profile returned by the OAuth provider's
// user endpoint.
type DiscordProfile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Email         string `json:"email"`
}

// SessionClaims are the fields extracted from a verified session token.
type SessionClaims struct {
	DiscordID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// CredentialRecord is one vault row: the Discord OAuth token stored
// server-side under the session token minted at login. ExpiresAt is
// always CreatedAt plus the fixed vault TTL.
type CredentialRecord struct {
	SessionToken string
	DiscordToken string
	DiscordID    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// LoginResult is what a completed login hands back to the HTTP layer.
type LoginResult struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

// ResourceLink is a signed, time-bounded CDN link for a single file.
type ResourceLink struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"`
}
