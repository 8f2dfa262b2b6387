package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Generative Language API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is used when none is configured.
	DefaultModel = "gemini-1.5-flash"
)

// ErrAnalysisFailed wraps any upstream model error or empty model output.
var ErrAnalysisFailed = errors.New("analysis failed")

// Kind selects the prompt variant for a piece of media.
type Kind string

const (
	KindAudio    Kind = "audio"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindVideo    Kind = "video"
)

// Request carries raw media plus the context the prompt policy cares about.
type Request struct {
	Kind     Kind
	Data     []byte
	MIMEType string
	Caption  string
	Filename string
}

// Client calls the Gemini generateContent endpoint with inline media.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Model   string
	APIKey  string
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		BaseURL: DefaultBaseURL,
		Model:   model,
		APIKey:  apiKey,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Analyze sends the media to the model and returns its synopsis. It
// returns either the full model text or ErrAnalysisFailed, never a
// silently truncated result.
func (c *Client) Analyze(ctx context.Context, req Request) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("%w: api key not configured", ErrAnalysisFailed)
	}
	if len(req.Data) == 0 {
		return "", fmt.Errorf("%w: no media bytes", ErrAnalysisFailed)
	}

	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: buildPrompt(req)},
				{InlineData: &inlineData{
					MIMEType: req.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(req.Data),
				}},
			},
		}},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrAnalysisFailed, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrAnalysisFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var raw map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&raw)
		return "", fmt.Errorf("%w: status %d body=%v", ErrAnalysisFailed, resp.StatusCode, raw)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrAnalysisFailed, err)
	}

	var sb strings.Builder
	if len(parsed.Candidates) > 0 {
		for _, p := range parsed.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	synopsis := strings.TrimSpace(sb.String())
	if synopsis == "" {
		return "", fmt.Errorf("%w: model returned no text", ErrAnalysisFailed)
	}
	return synopsis, nil
}
