package wa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the Graph API root used for media lookup and sends.
const DefaultBaseURL = "https://graph.facebook.com/v21.0"

var (
	// ErrMediaUnavailable wraps any failure resolving or downloading media.
	ErrMediaUnavailable = errors.New("media unavailable")
	// ErrDeliveryFailed wraps any failure delivering an outbound message.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// MediaBlob is the ephemeral result of a media fetch. MIMEType is the
// type the Graph API reports for the handle, not what the webhook
// payload claimed.
type MediaBlob struct {
	Data     []byte
	MIMEType string
}

// Client talks to the WhatsApp Business Cloud API.
type Client struct {
	HTTP          *http.Client
	BaseURL       string
	AccessToken   string
	PhoneNumberID string
}

func NewClient(accessToken, phoneNumberID string) *Client {
	return &Client{
		HTTP:          &http.Client{Timeout: 30 * time.Second},
		BaseURL:       DefaultBaseURL,
		AccessToken:   accessToken,
		PhoneNumberID: phoneNumberID,
	}
}

type mediaMetadata struct {
	URL      string `json:"url"`
	MIMEType string `json:"mime_type"`
}

// FetchMedia resolves a media handle to raw bytes and MIME type. The
// Graph API hands out a short-lived download URL per lookup, so this is
// always two calls: metadata, then bytes.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) (MediaBlob, error) {
	if c.AccessToken == "" {
		return MediaBlob{}, fmt.Errorf("%w: access token not configured", ErrMediaUnavailable)
	}
	if mediaID == "" {
		return MediaBlob{}, fmt.Errorf("%w: empty media id", ErrMediaUnavailable)
	}

	meta, err := c.lookupMedia(ctx, mediaID)
	if err != nil {
		return MediaBlob{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return MediaBlob{}, fmt.Errorf("%w: build download request: %v", ErrMediaUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return MediaBlob{}, fmt.Errorf("%w: download: %v", ErrMediaUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return MediaBlob{}, fmt.Errorf("%w: download status %d", ErrMediaUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return MediaBlob{}, fmt.Errorf("%w: read body: %v", ErrMediaUnavailable, err)
	}
	return MediaBlob{Data: data, MIMEType: meta.MIMEType}, nil
}

func (c *Client) lookupMedia(ctx context.Context, mediaID string) (mediaMetadata, error) {
	url := fmt.Sprintf("%s/%s", c.BaseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return mediaMetadata{}, fmt.Errorf("%w: build lookup request: %v", ErrMediaUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return mediaMetadata{}, fmt.Errorf("%w: lookup: %v", ErrMediaUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return mediaMetadata{}, fmt.Errorf("%w: lookup status %d", ErrMediaUnavailable, resp.StatusCode)
	}

	var meta mediaMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return mediaMetadata{}, fmt.Errorf("%w: decode metadata: %v", ErrMediaUnavailable, err)
	}
	if meta.URL == "" {
		return mediaMetadata{}, fmt.Errorf("%w: no url for media %s", ErrMediaUnavailable, mediaID)
	}
	return meta, nil
}

// SendText delivers a one-shot text message to a recipient.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if c.AccessToken == "" || c.PhoneNumberID == "" {
		return fmt.Errorf("%w: sender credentials not configured", ErrDeliveryFailed)
	}

	url := fmt.Sprintf("%s/%s/messages", c.BaseURL, c.PhoneNumberID)
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, respBody)
	}
	return nil
}
