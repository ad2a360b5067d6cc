package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/model"
)

type codeExchanger interface {
	Exchange(ctx context.Context, code string) (string, model.DiscordProfile, error)
}

type identityStore interface {
	FindByDiscordID(ctx context.Context, discordID string) (model.Identity, error)
	Upsert(ctx context.Context, identity model.Identity) error
}

// AuthService orchestrates login, session verification and authorization
// decisions. It is the only place the components are composed, so every
// rejection leaves here as a typed model error.
type AuthService struct {
	oauth     codeExchanger
	sessions  *SessionService
	vault     *VaultService
	users     identityStore
	cdn       *CDNTokenService
	adminIDs  map[string]struct{}
	baseURL   string
	collector *metrics.Collector
	now       func() time.Time
}

func NewAuthService(
	oauth codeExchanger,
	sessions *SessionService,
	vault *VaultService,
	users identityStore,
	cdn *CDNTokenService,
	adminDiscordIDs []string,
	externalAPIBaseURL string,
	collector *metrics.Collector,
) *AuthService {
	admins := make(map[string]struct{}, len(adminDiscordIDs))
	for _, id := range adminDiscordIDs {
		admins[id] = struct{}{}
	}

	return &AuthService{
		oauth:     oauth,
		sessions:  sessions,
		vault:     vault,
		users:     users,
		cdn:       cdn,
		adminIDs:  admins,
		baseURL:   externalAPIBaseURL,
		collector: collector,
		now:       time.Now,
	}
}

// Login exchanges the authorization code, upserts the identity, mints a
// session token and stores the Discord credential under it. The vault
// write completes before the token is returned, so a caller holding a
// session token can always resolve its credential. No rollback on
// failure; the whole login is retryable.
func (s *AuthService) Login(ctx context.Context, code string) (model.LoginResult, error) {
	accessToken, profile, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.collector.RecordLogin("failure")
		return model.LoginResult{}, err
	}

	now := s.now().UTC()
	identity := model.Identity{
		DiscordID:     profile.ID,
		Username:      profile.Username,
		Discriminator: profile.Discriminator,
		Avatar:        profile.Avatar,
		Email:         profile.Email,
		CreatedAt:     now,
		LastLogin:     now,
	}
	if err := s.users.Upsert(ctx, identity); err != nil {
		s.collector.RecordLogin("failure")
		return model.LoginResult{}, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	stored, err := s.users.FindByDiscordID(ctx, profile.ID)
	if err != nil {
		s.collector.RecordLogin("failure")
		return model.LoginResult{}, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	sessionToken, err := s.sessions.Issue(profile.ID)
	if err != nil {
		s.collector.RecordLogin("failure")
		return model.LoginResult{}, fmt.Errorf("issue session token: %w", err)
	}

	if err := s.vault.Store(ctx, sessionToken, accessToken, profile.ID); err != nil {
		s.collector.RecordLogin("failure")
		return model.LoginResult{}, err
	}

	s.collector.RecordLogin("success")
	return model.LoginResult{Token: sessionToken, User: stored}, nil
}

// Authenticate verifies the session token and loads the identity it
// names. A cryptographically valid token whose identity row disappeared
// grants nothing.
func (s *AuthService) Authenticate(ctx context.Context, sessionToken string) (model.Identity, error) {
	claims, err := s.sessions.Verify(sessionToken)
	if err != nil {
		s.collector.RecordVerification("invalid")
		return model.Identity{}, model.ErrInvalidToken
	}

	identity, err := s.users.FindByDiscordID(ctx, claims.DiscordID)
	if errors.Is(err, model.ErrIdentityNotFound) {
		s.collector.RecordVerification("unknown_identity")
		return model.Identity{}, model.ErrIdentityNotFound
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	s.collector.RecordVerification("valid")
	return identity, nil
}

func (s *AuthService) IsAdmin(discordID string) bool {
	_, ok := s.adminIDs[discordID]
	return ok
}

// RequireAdmin authenticates the token and rejects non-admin identities
// with ErrForbidden. Privileged handlers go through this, never through
// Authenticate alone.
func (s *AuthService) RequireAdmin(ctx context.Context, sessionToken string) (model.Identity, error) {
	identity, err := s.Authenticate(ctx, sessionToken)
	if err != nil {
		return model.Identity{}, err
	}
	if !s.IsAdmin(identity.DiscordID) {
		return model.Identity{}, model.ErrForbidden
	}
	return identity, nil
}

// ResolveCredential returns the stored Discord credential for a valid
// session. A missing vault row is ErrCredentialMissing, distinct from an
// invalid session token.
func (s *AuthService) ResolveCredential(ctx context.Context, sessionToken string) (string, error) {
	return s.vault.Lookup(ctx, sessionToken)
}

// Logout revokes the vault entry linked to the session token. The token
// itself stays cryptographically valid until expiry; revocation is the
// vault row going away.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	return s.vault.Delete(ctx, sessionToken)
}

// MintResourceLink signs a time-bounded CDN link for a single file.
func (s *AuthService) MintResourceLink(path string, expiryEpoch int64) (model.ResourceLink, error) {
	now := s.now().Unix()
	if expiryEpoch <= now {
		return model.ResourceLink{}, model.ErrInvalidExpiry
	}

	token, expiry := s.cdn.TokenForResourceWithDuration(NormalizePath(path), expiryEpoch-now)

	return model.ResourceLink{
		URL:    fmt.Sprintf("%s/image/cdn/%s?token=%s&expiry=%d", s.baseURL, path, token, expiry),
		Token:  token,
		Expiry: expiry,
	}, nil
}

// BaseResourceToken exposes the cached broad CDN token together with the
// base URL clients prepend to file paths.
func (s *AuthService) BaseResourceToken() (string, int64, string) {
	token, expiry := s.cdn.BaseToken()
	return token, expiry, s.baseURL + "/image/cdn"
}
