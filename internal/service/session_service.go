package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bot-dashboard/internal/model"
)

// SessionService mints and validates the signed session tokens returned
// to the browser at login. Tokens are stateless: validity is signature
// plus expiry, nothing is stored server-side.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *SessionService) Issue(discordID string) (string, error) {
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": discordID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	})

	return token.SignedString(s.secret)
}

// Verify validates signature and expiry. A token is valid strictly
// before its expiry instant and invalid at or after it. Every failure
// mode collapses into ErrInvalidToken.
func (s *SessionService) Verify(tokenString string) (model.SessionClaims, error) {
	parsed, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
	)
	if err != nil || !parsed.Valid {
		return model.SessionClaims{}, model.ErrInvalidToken
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return model.SessionClaims{}, model.ErrInvalidToken
	}

	sub, _ := claimsMap["sub"].(string)
	if sub == "" {
		return model.SessionClaims{}, model.ErrInvalidToken
	}

	claims := model.SessionClaims{DiscordID: sub}
	claims.TokenID, _ = claimsMap["jti"].(string)
	if iat, ok := claimsMap["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}

	exp, ok := claimsMap["exp"].(float64)
	if !ok {
		return model.SessionClaims{}, model.ErrInvalidToken
	}
	claims.ExpiresAt = time.Unix(int64(exp), 0).UTC()

	if !s.now().UTC().Before(claims.ExpiresAt) {
		return model.SessionClaims{}, model.ErrInvalidToken
	}

	return claims, nil
}
