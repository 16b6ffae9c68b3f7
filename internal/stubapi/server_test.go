package stubapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goRecovery/internal/api"
	"github.com/MrEthical07/goRecovery/jwt"
	"github.com/MrEthical07/goRecovery/password"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("jwt.NewManager: %v", err)
	}
	hasher, err := password.NewArgon2(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}

	srv, err := NewServer(Config{
		Tokens:      tokens,
		Hasher:      hasher,
		Ledger:      newTestMemoryLedger(t, time.Minute),
		MaxFailures: 3,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func post(t *testing.T, url string, body any) (int, api.Envelope) {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()

	var env api.Envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func TestVerifyOutcomes(t *testing.T) {
	srv, ts := newTestServer(t)
	if _, err := srv.AddAccount("Jean Dupont", "jean@example.com", "Default123"); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if _, err := srv.AddAccount("No Default", "nd@example.com", ""); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	url := ts.URL + defaultVerifyPath

	cases := []struct {
		name   string
		req    api.VerifyRequest
		status int
		code   string
	}{
		{"unknown", api.VerifyRequest{Name: "Ghost", Email: "ghost@example.com", DefaultPassword: "x"}, http.StatusNotFound, CodeUserNotFound},
		{"no default", api.VerifyRequest{Name: "No Default", Email: "nd@example.com", DefaultPassword: "x"}, http.StatusConflict, CodeNoDefaultPassword},
		{"wrong password", api.VerifyRequest{Name: "Jean Dupont", Email: "jean@example.com", DefaultPassword: "nope"}, http.StatusUnauthorized, CodeInvalidCredentials},
		{"missing field", api.VerifyRequest{Name: "Jean Dupont"}, http.StatusBadRequest, CodeMissingField},
	}
	for _, tc := range cases {
		status, env := post(t, url, tc.req)
		if status != tc.status || env.Code != tc.code {
			t.Fatalf("%s: expected %d/%s, got %d/%s", tc.name, tc.status, tc.code, status, env.Code)
		}
	}

	status, env := post(t, url, api.VerifyRequest{Name: "jean dupont", Email: "JEAN@example.com", DefaultPassword: "Default123"})
	if status != http.StatusOK || env.Token == "" || env.Success == nil || !*env.Success {
		t.Fatalf("expected token on success, got %d %+v", status, env)
	}
	if srv.Calls(defaultVerifyPath) != len(cases)+1 {
		t.Fatalf("unexpected call count %d", srv.Calls(defaultVerifyPath))
	}
}

func TestVerifyRateLimitsRepeatedFailures(t *testing.T) {
	srv, ts := newTestServer(t)
	_, _ = srv.AddAccount("Jean Dupont", "jean@example.com", "Default123")
	url := ts.URL + defaultVerifyPath

	bad := api.VerifyRequest{Name: "Jean Dupont", Email: "jean@example.com", DefaultPassword: "wrong"}
	for i := 0; i < 3; i++ {
		if status, _ := post(t, url, bad); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, status)
		}
	}

	good := api.VerifyRequest{Name: "Jean Dupont", Email: "jean@example.com", DefaultPassword: "Default123"}
	status, env := post(t, url, good)
	if status != http.StatusTooManyRequests || env.Code != CodeRateLimited {
		t.Fatalf("expected 429 rate_limited, got %d/%s", status, env.Code)
	}
}

func TestResetFlow(t *testing.T) {
	srv, ts := newTestServer(t)
	id, _ := srv.AddAccount("Jean Dupont", "jean@example.com", "Default123")

	_, env := post(t, ts.URL+defaultVerifyPath, api.VerifyRequest{Name: "Jean Dupont", Email: "jean@example.com", DefaultPassword: "Default123"})
	token := env.Token
	resetURL := ts.URL + defaultResetPath

	if status, env := post(t, resetURL, api.ResetRequest{Token: token, NewPassword: "abcdef", ConfirmPassword: "abcdeg"}); status != http.StatusBadRequest || env.Code != CodePasswordMismatch {
		t.Fatalf("expected mismatch, got %d/%s", status, env.Code)
	}
	if status, env := post(t, resetURL, api.ResetRequest{Token: token, NewPassword: "abc", ConfirmPassword: "abc"}); status != http.StatusBadRequest || env.Code != CodePasswordTooShort {
		t.Fatalf("expected too short, got %d/%s", status, env.Code)
	}
	if status, env := post(t, resetURL, api.ResetRequest{Token: "abc123", NewPassword: "abcdef", ConfirmPassword: "abcdef"}); status != http.StatusUnauthorized || env.Code != CodeInvalidToken {
		t.Fatalf("expected invalid token, got %d/%s", status, env.Code)
	}

	status, env := post(t, resetURL, api.ResetRequest{Token: token, NewPassword: "abcdef", ConfirmPassword: "abcdef"})
	if status != http.StatusOK || env.Success == nil || !*env.Success {
		t.Fatalf("expected success, got %d %+v", status, env)
	}
	if ok, err := srv.CheckPassword(id, "abcdef"); err != nil || !ok {
		t.Fatalf("expected new password to be stored, got %v %v", ok, err)
	}
	acct, _ := srv.Account(id)
	if acct.DefaultPasswordHash != "" {
		t.Fatal("expected default password to be cleared")
	}

	if status, env := post(t, resetURL, api.ResetRequest{Token: token, NewPassword: "ghijkl", ConfirmPassword: "ghijkl"}); status != http.StatusGone || env.Code != CodeTokenUsed {
		t.Fatalf("expected token reuse to be refused, got %d/%s", status, env.Code)
	}
}

func TestMalformedBody(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+defaultVerifyPath, "application/json", bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+defaultVerifyPath, nil)
	req.Header.Set("Origin", "http://console.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS headers on preflight")
	}
}
