package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bot-dashboard/internal/model"
)

// CredentialRepository persists vault rows. Expiry semantics live in the
// service layer; the repository returns rows as stored.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// Store upserts the row for a session token. The session token is unique
// per login, so last writer wins.
func (r *CredentialRepository) Store(ctx context.Context, rec model.CredentialRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO discord_tokens (session_token, discord_token, discord_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_token) DO UPDATE SET
		     discord_token = EXCLUDED.discord_token,
		     discord_id = EXCLUDED.discord_id,
		     created_at = EXCLUDED.created_at,
		     expires_at = EXCLUDED.expires_at`,
		rec.SessionToken, rec.DiscordToken, rec.DiscordID, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store discord token: %w", err)
	}
	return nil
}

func (r *CredentialRepository) FindBySessionToken(ctx context.Context, sessionToken string) (model.CredentialRecord, error) {
	return r.findOne(ctx,
		`SELECT session_token, discord_token, discord_id, created_at, expires_at
		 FROM discord_tokens WHERE session_token = $1`, sessionToken)
}

func (r *CredentialRepository) FindByDiscordID(ctx context.Context, discordID string) (model.CredentialRecord, error) {
	return r.findOne(ctx,
		`SELECT session_token, discord_token, discord_id, created_at, expires_at
		 FROM discord_tokens WHERE discord_id = $1
		 ORDER BY created_at DESC LIMIT 1`, discordID)
}

func (r *CredentialRepository) Delete(ctx context.Context, sessionToken string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM discord_tokens WHERE session_token = $1`, sessionToken)
	if err != nil {
		return fmt.Errorf("delete discord token: %w", err)
	}
	return nil
}

// DeleteExpired removes every row with expires_at before the given time
// and reports how many were swept.
func (r *CredentialRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM discord_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired discord tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *CredentialRepository) findOne(ctx context.Context, query string, arg string) (model.CredentialRecord, error) {
	var rec model.CredentialRecord
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&rec.SessionToken, &rec.DiscordToken, &rec.DiscordID, &rec.CreatedAt, &rec.ExpiresAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.CredentialRecord{}, model.ErrCredentialMissing
	}
	if err != nil {
		return model.CredentialRecord{}, fmt.Errorf("find discord token: %w", err)
	}
	return rec, nil
}
