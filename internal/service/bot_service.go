package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/model"
	"bot-dashboard/pkg/apierror"
)

// BotService is the narrow client for the bot's administrative API. It
// attaches a resolved Discord credential as a bearer header and, for CDN
// fetches, the capability token query pair. Failures carry the upstream
// status so handlers can pass it through.
type BotService struct {
	baseURL   string
	client    *http.Client
	collector *metrics.Collector
}

func NewBotService(baseURL string, timeout time.Duration, collector *metrics.Collector) *BotService {
	return &BotService{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
		collector: collector,
	}
}

func (s *BotService) FetchUserInfo(ctx context.Context, discordToken string) (json.RawMessage, error) {
	return s.doJSON(ctx, http.MethodGet, s.baseURL+"/userinfo", discordToken, nil)
}

func (s *BotService) FetchUserInfoByID(ctx context.Context, discordToken string, discordID string) (json.RawMessage, error) {
	return s.doJSON(ctx, http.MethodGet, s.baseURL+"/userinfo/"+url.PathEscape(discordID), discordToken, nil)
}

func (s *BotService) EditUserSettings(ctx context.Context, discordToken string, discordID string, payload model.UserEditRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode settings payload: %w", err)
	}

	_, err = s.doJSON(ctx, http.MethodPut, s.baseURL+"/userinfo/"+url.PathEscape(discordID)+"/edit", discordToken, body)
	return err
}

// ListFiles returns the "files" array the bot API wraps its listing in.
func (s *BotService) ListFiles(ctx context.Context, discordToken string) (json.RawMessage, error) {
	raw, err := s.doJSON(ctx, http.MethodGet, s.baseURL+"/image/list", discordToken, nil)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Files json.RawMessage `json:"files"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("decode file listing: %w", err)
	}
	if listing.Files == nil {
		return json.RawMessage("[]"), nil
	}
	return listing.Files, nil
}

func (s *BotService) UploadFile(ctx context.Context, discordToken string, path string, content io.Reader) (json.RawMessage, error) {
	target := s.baseURL + "/image/upload?path=" + url.QueryEscape(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, content)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+discordToken)
	req.Header.Set("Content-Type", "application/octet-stream")

	return s.execute(req, "bot_api")
}

func (s *BotService) EditFilePath(ctx context.Context, discordToken string, path string, newPath string) (json.RawMessage, error) {
	target := s.baseURL + "/image/edit?path=" + url.QueryEscape(path) + "&new_path=" + url.QueryEscape(newPath)
	return s.doJSON(ctx, http.MethodPut, target, discordToken, nil)
}

func (s *BotService) DeleteFile(ctx context.Context, discordToken string, path string) (json.RawMessage, error) {
	target := s.baseURL + "/image/delete?path=" + url.QueryEscape(path)
	return s.doJSON(ctx, http.MethodDelete, target, discordToken, nil)
}

// FetchCDNFile downloads a file through the CDN endpoint using a
// capability token instead of a credential.
func (s *BotService) FetchCDNFile(ctx context.Context, path string, token string, expiry int64) ([]byte, error) {
	target := fmt.Sprintf("%s/image/cdn/%s?token=%s&expiry=%d", s.baseURL, path, token, expiry)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build cdn request: %w", err)
	}

	return s.execute(req, "cdn")
}

// TriggerUpdate asks the bot to update itself. When testRun is set the
// bot only validates the request. A dropped connection during a real
// update means the restart began; that surfaces as ErrBotRestarting so
// the handler can report it as initiated, never as an auth failure.
func (s *BotService) TriggerUpdate(ctx context.Context, discordToken string, testRun bool) (json.RawMessage, error) {
	target := s.baseURL + "/update"
	if testRun {
		target += "?test=pass"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+discordToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if testRun {
			return nil, fmt.Errorf("update test call: %w", err)
		}
		return nil, model.ErrBotRestarting
	}
	defer resp.Body.Close()

	s.collector.RecordUpstream("bot_api", resp.StatusCode)
	return readResponse(resp)
}

func (s *BotService) doJSON(ctx context.Context, method string, target string, discordToken string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build bot api request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+discordToken)
	req.Header.Set("Content-Type", "application/json")

	return s.execute(req, "bot_api")
}

func (s *BotService) execute(req *http.Request, target string) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bot api request: %w", err)
	}
	defer resp.Body.Close()

	s.collector.RecordUpstream(target, resp.StatusCode)
	return readResponse(resp)
}

// readResponse returns the body for 2xx responses and an APIError
// carrying the upstream status otherwise. A structured {"error": ...}
// body is unwrapped so the dashboard surfaces the bot's message.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bot api response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	message := string(body)
	var wrapped struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != "" {
		message = wrapped.Error
	}

	return nil, apierror.New("UPSTREAM_ERROR", message, "", resp.StatusCode)
}
