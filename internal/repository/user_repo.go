package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bot-dashboard/internal/model"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByDiscordID(ctx context.Context, discordID string) (model.Identity, error) {
	var u model.Identity
	err := r.pool.QueryRow(ctx,
		`SELECT discord_id, username, COALESCE(discriminator, ''), COALESCE(avatar, ''),
		        COALESCE(banner, ''), COALESCE(email, ''), created_at,
		        COALESCE(last_login, created_at), is_premium, COALESCE(premium_tier, ''),
		        premium_expires
		 FROM users WHERE discord_id = $1`, discordID).
		Scan(&u.DiscordID, &u.Username, &u.Discriminator, &u.Avatar, &u.Banner, &u.Email,
			&u.CreatedAt, &u.LastLogin, &u.IsPremium, &u.PremiumTier, &u.PremiumExpires)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Identity{}, model.ErrIdentityNotFound
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("find user by discord id: %w", err)
	}
	return u, nil
}

// Upsert creates the identity on first login and refreshes the mutable
// profile fields plus last_login on every later one. created_at is only
// set on insert.
func (r *UserRepository) Upsert(ctx context.Context, u model.Identity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (discord_id, username, discriminator, avatar, banner, email, created_at, last_login)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (discord_id) DO UPDATE SET
		     username = EXCLUDED.username,
		     discriminator = EXCLUDED.discriminator,
		     avatar = EXCLUDED.avatar,
		     banner = EXCLUDED.banner,
		     email = EXCLUDED.email,
		     last_login = EXCLUDED.last_login`,
		u.DiscordID, u.Username, u.Discriminator, u.Avatar, u.Banner, u.Email, u.CreatedAt, u.LastLogin)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
