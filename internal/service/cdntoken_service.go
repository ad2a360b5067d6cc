package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// Base token lifetime and the buffer before expiry at which a fresh
	// one is minted, so clients never receive a token about to lapse.
	baseTokenTTL       = 7 * 24 * 3600
	baseTokenBuffer    = 3600
	baseResourceScope  = "cdn"
	cdnCanonicalPrefix = "cdn/"
)

// CDNTokenService derives the capability tokens the CDN verifies
// independently: hex(SHA-256(path + expiry + secret)). The token bytes
// are a fixed wire format shared with the CDN, so the derivation must
// stay exactly this.
type CDNTokenService struct {
	secret string
	now    func() time.Time

	mu           sync.Mutex
	cachedToken  string
	cachedExpiry int64
}

func NewCDNTokenService(secret string) *CDNTokenService {
	return &CDNTokenService{
		secret: secret,
		now:    time.Now,
	}
}

// BaseToken returns the broad token covering the whole cdn scope,
// cached until one hour before its expiry. Concurrent callers see
// either the old valid pair or the freshly minted one.
func (s *CDNTokenService) BaseToken() (string, int64) {
	now := s.now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cachedToken != "" && now < s.cachedExpiry-baseTokenBuffer {
		return s.cachedToken, s.cachedExpiry
	}

	expiry := now + baseTokenTTL
	token := s.derive(baseResourceScope, expiry)
	s.cachedToken = token
	s.cachedExpiry = expiry

	return token, expiry
}

// TokenForResource derives the token for a single canonical path and an
// absolute expiry. Deterministic: identical inputs always yield the
// identical 64-character lowercase hex token.
func (s *CDNTokenService) TokenForResource(canonicalPath string, expiry int64) string {
	return s.derive(canonicalPath, expiry)
}

// TokenForResourceWithDuration derives a token expiring the given number
// of seconds from now. Callers reject non-positive durations first.
func (s *CDNTokenService) TokenForResourceWithDuration(canonicalPath string, expiresInSeconds int64) (string, int64) {
	expiry := s.now().Unix() + expiresInSeconds
	return s.derive(canonicalPath, expiry), expiry
}

func (s *CDNTokenService) derive(path string, expiry int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%d%s", path, expiry, s.secret)))
	return hex.EncodeToString(sum[:])
}

// NormalizePath maps any caller-supplied spelling of a file path onto
// the canonical "cdn/<relative-path>" form the hash expects. It strips
// the dashboard's "image/" namespace and is idempotent.
func NormalizePath(path string) string {
	path = strings.TrimPrefix(path, "/")

	if rest, ok := strings.CutPrefix(path, "image/"); ok {
		return cdnCanonicalPrefix + rest
	}
	if strings.HasPrefix(path, cdnCanonicalPrefix) {
		return path
	}
	return cdnCanonicalPrefix + path
}
