package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/model"
)

const (
	defaultDiscordTokenURL   = "https://discord.com/api/oauth2/token"
	defaultDiscordProfileURL = "https://discord.com/api/users/@me"
)

// OAuthService exchanges an authorization code against Discord's token
// endpoint and fetches the minimal profile with the resulting access
// token. Single attempt per call; retry policy belongs to the caller.
type OAuthService struct {
	clientID     string
	clientSecret string
	redirectURI  string

	// Overridable for tests.
	TokenURL   string
	ProfileURL string

	client    *http.Client
	collector *metrics.Collector
}

func NewOAuthService(clientID string, clientSecret string, redirectURI string, timeout time.Duration, collector *metrics.Collector) *OAuthService {
	return &OAuthService{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		TokenURL:     defaultDiscordTokenURL,
		ProfileURL:   defaultDiscordProfileURL,
		client:       &http.Client{Timeout: timeout},
		collector:    collector,
	}
}

// Exchange turns an authorization code into a Discord access token and
// the profile it belongs to.
func (s *OAuthService) Exchange(ctx context.Context, code string) (string, model.DiscordProfile, error) {
	accessToken, err := s.exchangeCode(ctx, code)
	if err != nil {
		return "", model.DiscordProfile{}, err
	}

	profile, err := s.fetchProfile(ctx, accessToken)
	if err != nil {
		return "", model.DiscordProfile{}, err
	}

	return accessToken, profile, nil
}

func (s *OAuthService) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {s.redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", model.ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	s.collector.RecordUpstream("oauth_token", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", model.ErrExchangeFailed, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", model.ErrExchangeFailed, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in response", model.ErrExchangeFailed)
	}

	return body.AccessToken, nil
}

func (s *OAuthService) fetchProfile(ctx context.Context, accessToken string) (model.DiscordProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ProfileURL, nil)
	if err != nil {
		return model.DiscordProfile{}, fmt.Errorf("%w: build profile request: %v", model.ErrProfileFetchFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return model.DiscordProfile{}, fmt.Errorf("%w: %v", model.ErrProfileFetchFailed, err)
	}
	defer resp.Body.Close()

	s.collector.RecordUpstream("oauth_profile", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return model.DiscordProfile{}, fmt.Errorf("%w: profile endpoint returned %d", model.ErrProfileFetchFailed, resp.StatusCode)
	}

	var profile model.DiscordProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return model.DiscordProfile{}, fmt.Errorf("%w: decode profile response: %v", model.ErrProfileFetchFailed, err)
	}
	if profile.ID == "" {
		return model.DiscordProfile{}, fmt.Errorf("%w: profile response missing id", model.ErrProfileFetchFailed)
	}

	return profile, nil
}
