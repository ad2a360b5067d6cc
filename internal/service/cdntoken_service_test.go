package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexTokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestCDNTokenService_TokenForResource(t *testing.T) {
	svc := NewCDNTokenService("api-secret")

	t.Run("deterministic", func(t *testing.T) {
		first := svc.TokenForResource("cdn/test/file.png", 1750000000)
		second := svc.TokenForResource("cdn/test/file.png", 1750000000)

		assert.Equal(t, first, second)
		assert.Regexp(t, hexTokenPattern, first)
	})

	t.Run("distinct paths yield distinct tokens", func(t *testing.T) {
		a := svc.TokenForResource("cdn/a.png", 1750000000)
		b := svc.TokenForResource("cdn/b.png", 1750000000)
		assert.NotEqual(t, a, b)
	})

	t.Run("distinct expiries yield distinct tokens", func(t *testing.T) {
		a := svc.TokenForResource("cdn/a.png", 1750000000)
		b := svc.TokenForResource("cdn/a.png", 1750000001)
		assert.NotEqual(t, a, b)
	})

	t.Run("distinct secrets yield distinct tokens", func(t *testing.T) {
		other := NewCDNTokenService("other-secret")
		a := svc.TokenForResource("cdn/a.png", 1750000000)
		b := other.TokenForResource("cdn/a.png", 1750000000)
		assert.NotEqual(t, a, b)
	})
}

func TestCDNTokenService_TokenForResourceWithDuration(t *testing.T) {
	svc := NewCDNTokenService("api-secret")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	token, expiry := svc.TokenForResourceWithDuration("cdn/test/file.png", 600)

	assert.Equal(t, now.Unix()+600, expiry)
	assert.Equal(t, svc.TokenForResource("cdn/test/file.png", expiry), token)
}

func TestCDNTokenService_BaseTokenCaching(t *testing.T) {
	svc := NewCDNTokenService("api-secret")
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	svc.now = func() time.Time { return now }

	first, firstExpiry := svc.BaseToken()
	require.Regexp(t, hexTokenPattern, first)
	assert.Equal(t, start.Unix()+7*24*3600, firstExpiry)

	t.Run("cached within buffer", func(t *testing.T) {
		now = start.Add(time.Hour)
		token, expiry := svc.BaseToken()
		assert.Equal(t, first, token)
		assert.Equal(t, firstExpiry, expiry)
	})

	t.Run("still cached just before buffer boundary", func(t *testing.T) {
		now = time.Unix(firstExpiry-3601, 0).UTC()
		token, _ := svc.BaseToken()
		assert.Equal(t, first, token)
	})

	t.Run("reminted at buffer boundary", func(t *testing.T) {
		now = time.Unix(firstExpiry-3600, 0).UTC()
		token, expiry := svc.BaseToken()
		assert.NotEqual(t, first, token)
		assert.Greater(t, expiry, firstExpiry)
	})
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"image/test/file.png":  "cdn/test/file.png",
		"/image/test/file.png": "cdn/test/file.png",
		"test/file.png":        "cdn/test/file.png",
		"/test/file.png":       "cdn/test/file.png",
		"cdn/test/file.png":    "cdn/test/file.png",
	}

	for input, want := range cases {
		assert.Equal(t, want, NormalizePath(input), "input %q", input)
	}

	t.Run("idempotent", func(t *testing.T) {
		once := NormalizePath("image/test/file.png")
		assert.Equal(t, once, NormalizePath(once))
	})
}
