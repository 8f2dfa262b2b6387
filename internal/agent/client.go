package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrIntentResolution wraps credential, configuration, and upstream
// Dialogflow errors.
var ErrIntentResolution = errors.New("intent resolution failed")

// FallbackReply is substituted when the agent returns no usable text.
const FallbackReply = "I'm not sure how to respond to that. Could you rephrase?"

const sessionPrefix = "wa-"

// SessionID maps a sender to a stable agent session, so the same sender
// keeps one conversation across webhook deliveries.
func SessionID(sender string) string {
	return sessionPrefix + sender
}

// Config identifies the Dialogflow CX agent and the service account
// used to call it.
type Config struct {
	ProjectID    string
	Location     string
	AgentID      string
	SAEmail      string
	SAPrivateKey string
	LanguageCode string
}

// Client resolves free text through a Dialogflow CX agent session.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	cfg     Config
	tokens  *tokenSource
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.AgentID == "" {
		return nil, fmt.Errorf("%w: agent identifiers not configured", ErrIntentResolution)
	}
	if cfg.SAEmail == "" || cfg.SAPrivateKey == "" {
		return nil, fmt.Errorf("%w: service account not configured", ErrIntentResolution)
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en"
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	ts, err := newTokenSource(httpClient, cfg.SAEmail, cfg.SAPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntentResolution, err)
	}

	host := "dialogflow.googleapis.com"
	if cfg.Location != "global" {
		host = cfg.Location + "-dialogflow.googleapis.com"
	}
	return &Client{
		HTTP:    httpClient,
		BaseURL: "https://" + host + "/v3",
		cfg:     cfg,
		tokens:  ts,
	}, nil
}

type detectIntentRequest struct {
	QueryInput queryInput `json:"queryInput"`
}

type queryInput struct {
	Text         textInput `json:"text"`
	LanguageCode string    `json:"languageCode"`
}

type textInput struct {
	Text string `json:"text"`
}

type detectIntentResponse struct {
	QueryResult struct {
		ResponseMessages []struct {
			Text struct {
				Text []string `json:"text"`
			} `json:"text"`
		} `json:"responseMessages"`
	} `json:"queryResult"`
}

// Resolve forwards text to the sender's agent session and returns the
// agent's reply. Response fragments are joined with newlines; when the
// agent sends no text at all the fixed fallback is returned instead of
// an empty string.
func (c *Client) Resolve(ctx context.Context, text, sender string) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntentResolution, err)
	}

	body, err := json.Marshal(detectIntentRequest{
		QueryInput: queryInput{
			Text:         textInput{Text: text},
			LanguageCode: c.cfg.LanguageCode,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrIntentResolution, err)
	}

	url := fmt.Sprintf("%s/projects/%s/locations/%s/agents/%s/sessions/%s:detectIntent",
		c.BaseURL, c.cfg.ProjectID, c.cfg.Location, c.cfg.AgentID, SessionID(sender))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrIntentResolution, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntentResolution, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var raw map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&raw)
		return "", fmt.Errorf("%w: status %d body=%v", ErrIntentResolution, resp.StatusCode, raw)
	}

	var parsed detectIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrIntentResolution, err)
	}

	var fragments []string
	for _, m := range parsed.QueryResult.ResponseMessages {
		for _, t := range m.Text.Text {
			if strings.TrimSpace(t) != "" {
				fragments = append(fragments, t)
			}
		}
	}
	if len(fragments) == 0 {
		return FallbackReply, nil
	}
	return strings.Join(fragments, "\n"), nil
}
