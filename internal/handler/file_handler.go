package handler

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bot-dashboard/internal/middleware"
	"bot-dashboard/internal/service"
	"bot-dashboard/pkg/apierror"
)

// FileHandler fronts the CDN-backed file management surface. Every route
// here sits behind the admin gate; the handlers only translate between
// HTTP and the token/proxy services.
type FileHandler struct {
	auth          *service.AuthService
	bot           *service.BotService
	maxUploadSize int64
}

func NewFileHandler(auth *service.AuthService, bot *service.BotService, maxUploadSize int64) *FileHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 64 << 20
	}
	return &FileHandler{auth: auth, bot: bot, maxUploadSize: maxUploadSize}
}

// FileViewerToken hands the frontend the cached broad CDN token.
func (h *FileHandler) FileViewerToken(w http.ResponseWriter, r *http.Request) {
	token, expiry, baseURL := h.auth.BaseResourceToken()

	writeSuccess(w, http.StatusOK, map[string]any{
		"token":   token,
		"expiry":  expiry,
		"baseUrl": baseURL,
	})
}

// GenerateLink mints a resource-scoped token for a single file with a
// caller-chosen expiry.
func (h *FileHandler) GenerateLink(w http.ResponseWriter, r *http.Request) {
	filePath := strings.TrimSpace(r.URL.Query().Get("path"))
	if filePath == "" {
		writeError(w, apierror.New("BAD_REQUEST", "path is required", "path", http.StatusBadRequest))
		return
	}

	expiry, err := strconv.ParseInt(r.URL.Query().Get("expiry"), 10, 64)
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "expiry must be a unix timestamp", "expiry", http.StatusBadRequest))
		return
	}

	link, err := h.auth.MintResourceLink(filePath, expiry)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, link)
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.credential(w, r)
	if !ok {
		return
	}

	files, err := h.bot.ListFiles(r.Context(), credential)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, files)
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.credential(w, r)
	if !ok {
		return
	}

	filePath := strings.TrimSpace(r.URL.Query().Get("path"))
	if filePath == "" {
		writeError(w, apierror.New("BAD_REQUEST", "path is required", "path", http.StatusBadRequest))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid multipart body", "", http.StatusBadRequest))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "file is required", "file", http.StatusBadRequest))
		return
	}
	defer file.Close()

	result, err := h.bot.UploadFile(r.Context(), credential, filePath, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *FileHandler) EditPath(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.credential(w, r)
	if !ok {
		return
	}

	filePath := strings.TrimSpace(r.URL.Query().Get("path"))
	newPath := strings.TrimSpace(r.URL.Query().Get("new_path"))
	if filePath == "" || newPath == "" {
		writeError(w, apierror.New("BAD_REQUEST", "path and new_path are required", "", http.StatusBadRequest))
		return
	}

	result, err := h.bot.EditFilePath(r.Context(), credential, filePath, newPath)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.credential(w, r)
	if !ok {
		return
	}

	filePath := strings.TrimSpace(r.URL.Query().Get("path"))
	if filePath == "" {
		writeError(w, apierror.New("BAD_REQUEST", "path is required", "path", http.StatusBadRequest))
		return
	}

	result, err := h.bot.DeleteFile(r.Context(), credential, filePath)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// GetFile streams a file's bytes through the CDN using the broad token.
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	filePath := chi.URLParam(r, "*")
	if strings.TrimSpace(filePath) == "" {
		writeError(w, apierror.New("BAD_REQUEST", "path is required", "path", http.StatusBadRequest))
		return
	}

	token, expiry, _ := h.auth.BaseResourceToken()
	content, err := h.bot.FetchCDNFile(r.Context(), filePath, token, expiry)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(filePath)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *FileHandler) credential(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, ok := middleware.SessionTokenFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("BAD_REQUEST", "authentication required", "", http.StatusBadRequest))
		return "", false
	}

	credential, err := h.auth.ResolveCredential(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return "", false
	}

	return credential, true
}
