package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Sink delivers the finalized report and operator notices to the log
// channel. Delivery is strictly outside the aggregation core: a failed
// upload never re-opens the just-cleared session store.
type Sink interface {
	UploadCSV(ctx context.Context, filename string, content []byte, message string) error
	Notify(ctx context.Context, message string) error
}

// Config holds delivery settings.
type Config struct {
	APIURL    string
	Token     string
	ChannelID string
}

// HTTPSink posts messages and file attachments to the platform's
// channel API.
type HTTPSink struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// New creates an HTTP sink for the configured log channel.
func New(cfg Config, logger zerolog.Logger) *HTTPSink {
	return &HTTPSink{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "sink").Logger(),
	}
}

// UploadCSV posts the report as a multipart file attachment with an
// accompanying message.
func (s *HTTPSink) UploadCSV(ctx context.Context, filename string, content []byte, message string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("content", message); err != nil {
		return fmt.Errorf("write message field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.messagesEndpoint(), &body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	if err := s.do(req); err != nil {
		return fmt.Errorf("upload report: %w", err)
	}

	s.logger.Info().
		Str("channel_id", s.cfg.ChannelID).
		Str("filename", filename).
		Int("bytes", len(content)).
		Msg("Report uploaded")
	return nil
}

// Notify posts a plain operator message to the log channel.
func (s *HTTPSink) Notify(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.messagesEndpoint(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	if err := s.do(req); err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	return nil
}

func (s *HTTPSink) messagesEndpoint() string {
	return fmt.Sprintf("%s/channels/%s/messages", s.cfg.APIURL, url.PathEscape(s.cfg.ChannelID))
}

func (s *HTTPSink) do(req *http.Request) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
