package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pressroom/internal/model"

	"github.com/rs/zerolog"
)

// HTTPAdapter publishes through a per-platform bridge service: it POSTs the
// content snapshot as JSON and expects a JSON Result back. Platform-specific
// API clients live behind those bridge endpoints.
type HTTPAdapter struct {
	platform string
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// NewHTTPAdapter creates an adapter posting to endpoint with the given
// request timeout.
func NewHTTPAdapter(platform, endpoint string, timeout time.Duration, logger zerolog.Logger) *HTTPAdapter {
	return &HTTPAdapter{
		platform: platform,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("adapter", platform).Logger(),
	}
}

type bridgeRequest struct {
	ItemID   string                 `json:"item_id"`
	TenantID string                 `json:"tenant_id"`
	Platform string                 `json:"platform"`
	Content  *model.ContentSnapshot `json:"content"`
}

func (a *HTTPAdapter) Publish(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*Result, error) {
	reqBody, err := json.Marshal(bridgeRequest{
		ItemID:   item.ID,
		TenantID: item.TenantID,
		Platform: item.Platform,
		Content:  content,
	})
	if err != nil {
		return nil, &TerminalExecutionError{Reason: "marshaling bridge request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &TerminalExecutionError{Reason: "creating bridge request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s bridge: %w", a.platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		a.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("item_id", item.ID).
			Msg("Bridge returned error")
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding %s bridge response: %w", a.platform, err)
	}
	a.logger.Info().
		Str("item_id", item.ID).
		Str("remote_url", result.RemoteURL).
		Str("duration", time.Since(start).String()).
		Msg("Bridge publish succeeded")
	return &result, nil
}
