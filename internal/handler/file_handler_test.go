package handler_test

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRoutesRequireAdmin(t *testing.T) {
	s := newStack(t, "http://bot.invalid") // nobody is admin
	token := s.login(t)

	rec := s.do(t, http.MethodGet, "/api/image/fileviewer-token", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/image/list", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileViewerTokenEndpoint(t *testing.T) {
	s := newStack(t, "http://bot.invalid", "42")
	token := s.login(t)

	rec := s.do(t, http.MethodGet, "/api/image/fileviewer-token", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	data, ok := decodeEnvelope(t, rec).Data.(map[string]any)
	require.True(t, ok)
	assert.Regexp(t, `^[0-9a-f]{64}$`, data["token"])
	assert.Equal(t, "http://bot.invalid/image/cdn", data["baseUrl"])
	assert.Greater(t, data["expiry"], float64(time.Now().Unix()))
}

func TestGenerateLinkEndpoint(t *testing.T) {
	s := newStack(t, "http://bot.invalid", "42")
	token := s.login(t)

	expiry := time.Now().Add(10 * time.Minute).Unix()
	target := fmt.Sprintf("/api/image/generate-link?path=image/avatars/a.png&expiry=%d", expiry)

	rec := s.do(t, http.MethodPost, target, token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data, ok := decodeEnvelope(t, rec).Data.(map[string]any)
	require.True(t, ok)
	assert.Regexp(t, `^[0-9a-f]{64}$`, data["token"])
	assert.Equal(t, float64(expiry), data["expiry"])
	assert.Contains(t, data["url"], "token=")
}

func TestGenerateLinkEndpointValidation(t *testing.T) {
	s := newStack(t, "http://bot.invalid", "42")
	token := s.login(t)

	// Missing path.
	rec := s.do(t, http.MethodPost, "/api/image/generate-link?expiry=9999999999", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Non-numeric expiry.
	rec = s.do(t, http.MethodPost, "/api/image/generate-link?path=cdn/a.png&expiry=soon", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Expiry in the past.
	past := time.Now().Add(-time.Minute).Unix()
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/image/generate-link?path=cdn/a.png&expiry=%d", past), token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Expiry time must be in the future", decodeEnvelope(t, rec).Error.Message)
}

func TestListFilesEndpoint(t *testing.T) {
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/image/list", r.URL.Path)
		w.Write([]byte(`{"files":[{"path":"cdn/a.png"}]}`))
	}))
	defer bot.Close()

	s := newStack(t, bot.URL, "42")
	token := s.login(t)

	rec := s.do(t, http.MethodGet, "/api/image/list", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cdn/a.png`)
}

func TestUploadEndpoint(t *testing.T) {
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/image/upload", r.URL.Path)
		assert.Equal(t, "cdn/a.png", r.URL.Query().Get("path"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "png-bytes", string(body))
		w.Write([]byte(`{"path":"cdn/a.png"}`))
	}))
	defer bot.Close()

	s := newStack(t, bot.URL, "42")
	token := s.login(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "a.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/image/upload?path=cdn/a.png", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetFileStreamsThroughCDN(t *testing.T) {
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/image/cdn/avatars/a.png", r.URL.Path)
		assert.Regexp(t, `^[0-9a-f]{64}$`, r.URL.Query().Get("token"))
		assert.NotEmpty(t, r.URL.Query().Get("expiry"))
		w.Write([]byte("png-bytes"))
	}))
	defer bot.Close()

	s := newStack(t, bot.URL, "42")
	token := s.login(t)

	rec := s.do(t, http.MethodGet, "/api/image/avatars/a.png", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `a.png`)
}
