package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// HTTPDirectory queries the platform REST API for room occupancy.
type HTTPDirectory struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPDirectory creates a directory client against the platform
// API base URL.
func NewHTTPDirectory(baseURL, token string, logger zerolog.Logger) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With().Str("component", "directory").Logger(),
	}
}

// PresentUsers returns the users currently inside the named room.
func (d *HTTPDirectory) PresentUsers(ctx context.Context, room string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/rooms/%s/members", d.baseURL, url.PathEscape(room))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build members request: %w", err)
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query room members: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query room members: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Members []string `json:"members"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode room members: %w", err)
	}

	d.logger.Debug().Str("room", room).Int("members", len(body.Members)).Msg("Room occupancy queried")
	return body.Members, nil
}
