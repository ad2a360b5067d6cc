package service

import (
	"context"
	"sync"
	"time"

	"bot-dashboard/internal/model"
)

// memoryCredentialStore is an in-memory credentialStore for service
// tests. It deliberately keeps expired rows until DeleteExpired runs so
// lazy-expiry reads can be exercised.
type memoryCredentialStore struct {
	mu   sync.Mutex
	rows map[string]model.CredentialRecord
	err  error
}

func newMemoryCredentialStore() *memoryCredentialStore {
	return &memoryCredentialStore{rows: map[string]model.CredentialRecord{}}
}

func (s *memoryCredentialStore) Store(_ context.Context, rec model.CredentialRecord) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.SessionToken] = rec
	return nil
}

func (s *memoryCredentialStore) FindBySessionToken(_ context.Context, sessionToken string) (model.CredentialRecord, error) {
	if s.err != nil {
		return model.CredentialRecord{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[sessionToken]
	if !ok {
		return model.CredentialRecord{}, model.ErrCredentialMissing
	}
	return rec, nil
}

func (s *memoryCredentialStore) FindByDiscordID(_ context.Context, discordID string) (model.CredentialRecord, error) {
	if s.err != nil {
		return model.CredentialRecord{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest model.CredentialRecord
	found := false
	for _, rec := range s.rows {
		if rec.DiscordID != discordID {
			continue
		}
		if !found || rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
			found = true
		}
	}
	if !found {
		return model.CredentialRecord{}, model.ErrCredentialMissing
	}
	return latest, nil
}

func (s *memoryCredentialStore) Delete(_ context.Context, sessionToken string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, sessionToken)
	return nil
}

func (s *memoryCredentialStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
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

func (s *memoryCredentialStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// fakeIdentityStore is an in-memory identityStore.
type fakeIdentityStore struct {
	mu    sync.Mutex
	users map[string]model.Identity
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{users: map[string]model.Identity{}}
}

func (s *fakeIdentityStore) FindByDiscordID(_ context.Context, discordID string) (model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.users[discordID]
	if !ok {
		return model.Identity{}, model.ErrIdentityNotFound
	}
	return identity, nil
}

func (s *fakeIdentityStore) Upsert(_ context.Context, identity model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[identity.DiscordID]; ok {
		identity.CreatedAt = existing.CreatedAt
	}
	s.users[identity.DiscordID] = identity
	return nil
}

func (s *fakeIdentityStore) remove(discordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, discordID)
}

// fakeExchanger satisfies codeExchanger without network I/O.
type fakeExchanger struct {
	accessToken string
	profile     model.DiscordProfile
	err         error
}

func (f *fakeExchanger) Exchange(_ context.Context, _ string) (string, model.DiscordProfile, error) {
	if f.err != nil {
		return "", model.DiscordProfile{}, f.err
	}
	return f.accessToken, f.profile, nil
}
