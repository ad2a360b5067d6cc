package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/model"
)

// credentialTTL is the fixed lifetime of a vault row, measured from the
// moment the credential is stored at login.
const credentialTTL = 7 * 24 * time.Hour

type credentialStore interface {
	Store(ctx context.Context, rec model.CredentialRecord) error
	FindBySessionToken(ctx context.Context, sessionToken string) (model.CredentialRecord, error)
	FindByDiscordID(ctx context.Context, discordID string) (model.CredentialRecord, error)
	Delete(ctx context.Context, sessionToken string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// VaultService is the server-side store for Discord OAuth credentials,
// keyed by the session token minted at login. Reads apply a lazy expiry
// check, so a row that outlived its TTL is never returned even before
// the periodic sweep removes it.
type VaultService struct {
	store     credentialStore
	collector *metrics.Collector
	now       func() time.Time
}

func NewVaultService(store credentialStore, collector *metrics.Collector) *VaultService {
	return &VaultService{
		store:     store,
		collector: collector,
		now:       time.Now,
	}
}

func (s *VaultService) Store(ctx context.Context, sessionToken string, discordToken string, discordID string) error {
	now := s.now().UTC()
	rec := model.CredentialRecord{
		SessionToken: sessionToken,
		DiscordToken: discordToken,
		DiscordID:    discordID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(credentialTTL),
	}

	if err := s.store.Store(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return nil
}

// Lookup returns the stored Discord credential for a session token, or
// ErrCredentialMissing when no live row exists. An empty token resolves
// to absent rather than an error from the store.
func (s *VaultService) Lookup(ctx context.Context, sessionToken string) (string, error) {
	if sessionToken == "" {
		return "", model.ErrCredentialMissing
	}

	rec, err := s.store.FindBySessionToken(ctx, sessionToken)
	return s.liveCredential(rec, err)
}

func (s *VaultService) Exists(ctx context.Context, sessionToken string) (bool, error) {
	_, err := s.Lookup(ctx, sessionToken)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, model.ErrCredentialMissing) {
		return false, nil
	}
	return false, err
}

func (s *VaultService) LookupByOwner(ctx context.Context, discordID string) (string, error) {
	if discordID == "" {
		return "", model.ErrCredentialMissing
	}

	rec, err := s.store.FindByDiscordID(ctx, discordID)
	return s.liveCredential(rec, err)
}

// Delete removes the vault row for a session token. Deleting an absent
// or empty token is a no-op.
func (s *VaultService) Delete(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	if err := s.store.Delete(ctx, sessionToken); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return nil
}

// SweepExpired bulk-deletes every row whose expiry has passed.
func (s *VaultService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	s.collector.RecordSweepDeleted(deleted)
	return deleted, nil
}

// StartSweeper runs SweepExpired on the given interval until the context
// is cancelled. Safe to run concurrently with request traffic: reads
// already tolerate rows that are expired but not yet swept.
func (s *VaultService) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.SweepExpired(ctx, s.now().UTC())
			if err != nil {
				slog.Error("credential sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("credential sweep", "deleted", deleted)
			}
		}
	}
}

func (s *VaultService) liveCredential(rec model.CredentialRecord, err error) (string, error) {
	if errors.Is(err, model.ErrCredentialMissing) {
		return "", model.ErrCredentialMissing
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	if !s.now().UTC().Before(rec.ExpiresAt) {
		return "", model.ErrCredentialMissing
	}
	return rec.DiscordToken, nil
}
