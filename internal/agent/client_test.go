package agent

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testKeyPEM(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return string(pem.EncodeToMemory(block)), key
}

func newTestAgent(t *testing.T, agentSrv *httptest.Server) *Client {
	t.Helper()
	_, key := testKeyPEM(t)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != jwtBearerGrant {
			t.Errorf("unexpected grant type: %q", r.Form.Get("grant_type"))
		}
		fmt.Fprint(w, `{"access_token":"at-1","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	ts := &tokenSource{
		http:     tokenSrv.Client(),
		tokenURL: tokenSrv.URL,
		email:    "svc@example.iam.gserviceaccount.com",
		key:      key,
	}
	return &Client{
		HTTP:    agentSrv.Client(),
		BaseURL: agentSrv.URL,
		cfg: Config{
			ProjectID:    "proj",
			Location:     "global",
			AgentID:      "agent-1",
			LanguageCode: "en",
		},
		tokens: ts,
	}
}

func TestResolve(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq detectIntentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprint(w, `{"queryResult":{"responseMessages":[
			{"text":{"text":["Hello!"]}},
			{"text":{"text":["", "How can I help?"]}}
		]}}`)
	}))
	defer srv.Close()

	c := newTestAgent(t, srv)
	reply, err := c.Resolve(context.Background(), "hello", "1555")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if reply != "Hello!\nHow can I help?" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if !strings.HasSuffix(gotPath, "/sessions/wa-1555:detectIntent") {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotAuth != "Bearer at-1" {
		t.Fatalf("unexpected auth: %q", gotAuth)
	}
	if gotReq.QueryInput.Text.Text != "hello" || gotReq.QueryInput.LanguageCode != "en" {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
}

func TestResolve_EmptyFragmentsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"queryResult":{"responseMessages":[{"text":{"text":["", "  "]}}]}}`)
	}))
	defer srv.Close()

	reply, err := newTestAgent(t, srv).Resolve(context.Background(), "hi", "1555")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if reply != FallbackReply {
		t.Fatalf("expected fallback, got %q", reply)
	}
}

func TestResolve_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"denied"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestAgent(t, srv).Resolve(context.Background(), "hi", "1555")
	if !errors.Is(err, ErrIntentResolution) {
		t.Fatalf("expected ErrIntentResolution, got %v", err)
	}
}

func TestSessionID(t *testing.T) {
	if SessionID("1555") != "wa-1555" {
		t.Fatalf("unexpected session id: %q", SessionID("1555"))
	}
	if SessionID("1555") != SessionID("1555") {
		t.Fatal("session id must be deterministic")
	}
}

func TestNewClient(t *testing.T) {
	pemKey, _ := testKeyPEM(t)

	c, err := NewClient(Config{
		ProjectID:    "proj",
		Location:     "us-central1",
		AgentID:      "agent-1",
		SAEmail:      "svc@example.iam.gserviceaccount.com",
		SAPrivateKey: pemKey,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.BaseURL != "https://us-central1-dialogflow.googleapis.com/v3" {
		t.Fatalf("unexpected base url: %q", c.BaseURL)
	}
	if c.cfg.LanguageCode != "en" {
		t.Fatalf("language should default to en, got %q", c.cfg.LanguageCode)
	}
}

func TestNewClient_MissingConfig(t *testing.T) {
	_, err := NewClient(Config{ProjectID: "proj"})
	if !errors.Is(err, ErrIntentResolution) {
		t.Fatalf("expected ErrIntentResolution, got %v", err)
	}
}

func TestTokenSource_Caches(t *testing.T) {
	_, key := testKeyPEM(t)

	var calls int
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"access_token":"at-cached","expires_in":3600}`)
	}))
	defer tokenSrv.Close()

	ts := &tokenSource{
		http:     tokenSrv.Client(),
		tokenURL: tokenSrv.URL,
		email:    "svc@example.iam.gserviceaccount.com",
		key:      key,
	}

	for i := 0; i < 3; i++ {
		tok, err := ts.Token(context.Background())
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		if tok != "at-cached" {
			t.Fatalf("unexpected token: %q", tok)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 exchange, got %d", calls)
	}

	// Force the refresh window and check a new exchange happens.
	ts.expires = time.Now().Add(time.Minute)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected refresh, got %d calls", calls)
	}
}
