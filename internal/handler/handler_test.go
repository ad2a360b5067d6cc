package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"bot-dashboard/internal/config"
	"bot-dashboard/internal/handler"
	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/middleware"
	"bot-dashboard/internal/model"
	"bot-dashboard/internal/router"
	"bot-dashboard/internal/service"
)

// The fixtures below stand up the full HTTP stack with in-memory storage
// and a stubbed Discord exchange, so handler tests exercise the same
// middleware chain production traffic goes through.

type memoryCredentials struct {
	mu   sync.Mutex
	rows map[string]model.CredentialRecord
}

func (s *memoryCredentials) Store(_ context.Context, rec model.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.SessionToken] = rec
	return nil
}

func (s *memoryCredentials) FindBySessionToken(_ context.Context, sessionToken string) (model.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[sessionToken]
	if !ok {
		return model.CredentialRecord{}, model.ErrCredentialMissing
	}
	return rec, nil
}

func (s *memoryCredentials) FindByDiscordID(_ context.Context, discordID string) (model.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.rows {
		if rec.DiscordID == discordID {
			return rec, nil
		}
	}
	return model.CredentialRecord{}, model.ErrCredentialMissing
}

func (s *memoryCredentials) Delete(_ context.Context, sessionToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, sessionToken)
	return nil
}

func (s *memoryCredentials) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for token, rec := range s.rows {
		if rec.ExpiresAt.Before(now) {
			delete(s.rows, token)
			deleted++
		}
	}
	return deleted, nil
}

type memoryIdentities struct {
	mu    sync.Mutex
	users map[string]model.Identity
}

func (s *memoryIdentities) FindByDiscordID(_ context.Context, discordID string) (model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.users[discordID]
	if !ok {
		return model.Identity{}, model.ErrIdentityNotFound
	}
	return identity, nil
}

func (s *memoryIdentities) Upsert(_ context.Context, identity model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[identity.DiscordID] = identity
	return nil
}

type stubExchange struct {
	accessToken string
	profile     model.DiscordProfile
	err         error
}

func (s *stubExchange) Exchange(_ context.Context, _ string) (string, model.DiscordProfile, error) {
	if s.err != nil {
		return "", model.DiscordProfile{}, s.err
	}
	return s.accessToken, s.profile, nil
}

type stack struct {
	handler  http.Handler
	exchange *stubExchange
}

func newStack(t *testing.T, botURL string, admins ...string) *stack {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout:     10 * time.Second,
		UpstreamTimeout:    5 * time.Second,
		CORSOrigins:        []string{"*"},
		RateLimitRPM:       10000,
		AuthRateLimitRPM:   10000,
		ExternalAPIBaseURL: botURL,
		AdminDiscordIDs:    admins,
	}

	exchange := &stubExchange{
		accessToken: "dtok",
		profile:     model.DiscordProfile{ID: "42", Username: "tester"},
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sessions := service.NewSessionService("test-secret", 24*time.Hour)
	vault := service.NewVaultService(&memoryCredentials{rows: map[string]model.CredentialRecord{}}, collector)
	users := &memoryIdentities{users: map[string]model.Identity{}}
	cdn := service.NewCDNTokenService("cdn-secret")
	auth := service.NewAuthService(exchange, sessions, vault, users, cdn, cfg.AdminDiscordIDs, cfg.ExternalAPIBaseURL, collector)
	bot := service.NewBotService(cfg.ExternalAPIBaseURL, cfg.UpstreamTimeout, collector)

	authMW := middleware.NewAuthMiddleware(auth)
	authHandler := handler.NewAuthHandler(auth, bot)
	fileHandler := handler.NewFileHandler(auth, bot, 0)

	return &stack{
		handler:  router.New(cfg, authMW, authHandler, fileHandler, collector, registry),
		exchange: exchange,
	}
}

func (s *stack) do(t *testing.T, method, target, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *stack) login(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", `{"code":"code123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()
	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
