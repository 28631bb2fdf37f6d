package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/types"
)

// maxAnalyzerResponseBytes bounds how much of an analyzer reply is read.
const maxAnalyzerResponseBytes = 4 << 20

type analyzeTextRequest struct {
	Text        string `json:"text"`
	IncludeUSDA bool   `json:"include_usda"`
}

// AnalyzerClient talks to the food analysis service.
type AnalyzerClient struct {
	baseURL     string
	includeUSDA bool
	client      *http.Client
	log         *logger.Logger
}

// NewAnalyzerClient creates a client for the analyzer at baseURL. The
// timeout applies to each HTTP call; callers may set a shorter one through
// the context.
func NewAnalyzerClient(baseURL string, timeout time.Duration, includeUSDA bool, log *logger.Logger) *AnalyzerClient {
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalyzerClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		includeUSDA: includeUSDA,
		client:      &http.Client{Timeout: timeout},
		log:         log,
	}
}

// AnalyzeText asks the analyzer to itemize a free-text meal description.
func (c *AnalyzerClient) AnalyzeText(ctx context.Context, text string) (*types.AnalysisResult, error) {
	body, err := json.Marshal(analyzeTextRequest{Text: text, IncludeUSDA: c.includeUSDA})
	if err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerRejected, Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze/text", bytes.NewReader(body))
	if err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerUnavailable, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doAnalyze(req)
}

// AnalyzeImage uploads a meal photo for analysis.
func (c *AnalyzerClient) AnalyzeImage(ctx context.Context, img *ImageUpload) (*types.AnalysisResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := img.Filename
	if filename == "" {
		filename = "image"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", img.ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerRejected, Message: "failed to encode image", Err: err}
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerRejected, Message: "failed to encode image", Err: err}
	}
	if err := w.WriteField("include_nutrition", "true"); err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerRejected, Message: "failed to encode image", Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerRejected, Message: "failed to encode image", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze/image", &buf)
	if err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerUnavailable, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.doAnalyze(req)
}

// Health returns the analyzer's own health report.
func (c *AnalyzerClient) Health(ctx context.Context) (map[string]interface{}, error) {
	return c.getJSON(ctx, "/health")
}

// Config returns the analyzer's reported configuration, such as which food
// databases it has keys for.
func (c *AnalyzerClient) Config(ctx context.Context) (map[string]interface{}, error) {
	return c.getJSON(ctx, "/config")
}

func (c *AnalyzerClient) getJSON(ctx context.Context, path string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerUnavailable, Message: "failed to create request", Err: err}
	}

	body, err := c.send(req)
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerRejected, Message: "malformed " + strings.TrimPrefix(path, "/") + " response", Err: err}
	}
	return out, nil
}

func (c *AnalyzerClient) doAnalyze(req *http.Request) (*types.AnalysisResult, error) {
	start := time.Now()
	body, err := c.send(req)
	if err != nil {
		c.log.Warn("analyzer call failed", "path", req.URL.Path, "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &AnalyzerError{Kind: KindAnalyzerRejected, Message: "malformed analyzer response", Err: err}
	}
	if result.Failed() {
		msg := result.Error
		if msg == "" && len(result.Warnings) > 0 {
			msg = strings.Join(result.Warnings, "; ")
		}
		if msg == "" {
			msg = "analysis was not successful"
		}
		return nil, &AnalyzerError{Kind: KindAnalyzerRejected, Message: msg}
	}

	c.log.Debug("analyzer call succeeded",
		"path", req.URL.Path,
		"items", len(result.Items),
		"elapsed", time.Since(start),
	)
	return &result, nil
}

// send performs the request and returns the body of a 2xx response.
func (c *AnalyzerClient) send(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &AnalyzerError{Kind: KindAnalyzerTimeout, Message: "analyzer did not respond in time", Err: err}
		}
		return nil, &AnalyzerError{Kind: KindAnalyzerUnavailable, Message: "analyzer is unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalyzerResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, &AnalyzerError{Kind: KindAnalyzerTimeout, Message: "analyzer response timed out", Err: err}
		}
		return nil, &AnalyzerError{Kind: KindAnalyzerUnavailable, Message: "failed to read analyzer response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AnalyzerError{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp, body),
		}
	}
	return body, nil
}

func kindForStatus(status int) FailureKind {
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindAnalyzerTimeout
	case status == http.StatusTooManyRequests || status >= 500:
		return KindAnalyzerUnavailable
	default:
		return KindAnalyzerRejected
	}
}

// errorMessage prefers the analyzer's own error text and falls back to the
// raw status line.
func errorMessage(resp *http.Response, body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				if s != "" {
					return s
				}
				continue
			}
			if string(raw) != "null" {
				return string(raw)
			}
		}
	}
	return fmt.Sprintf("API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
