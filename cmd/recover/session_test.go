package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	goRecovery "github.com/MrEthical07/goRecovery"
	"github.com/MrEthical07/goRecovery/internal/stubapi"
)

func newStub(t *testing.T) (*stubapi.Server, string) {
	t.Helper()
	srv, stop, err := stubapi.NewInMemory(stubapi.FastHashCost(), time.Minute, nil)
	if err != nil {
		t.Fatalf("stubapi.NewInMemory: %v", err)
	}
	t.Cleanup(stop)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL
}

func testConfig(baseURL string) goRecovery.Config {
	cfg := goRecovery.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.RequestTimeout = 5 * time.Second
	return cfg
}

func TestRunCompletesReset(t *testing.T) {
	srv, url := newStub(t)
	id, err := srv.AddAccount("Jean Dupont", "jean@example.com", "Default123")
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	input := strings.Join([]string{
		"Jean Dupont", "jean@example.com", "wrong",
		"Jean Dupont", "jean@example.com", "Default123",
		"abcdef", "abcdeg",
		"abc", "abc",
		"abcdef", "abcdef",
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := run(context.Background(), testConfig(url), zap.NewNop(), strings.NewReader(input), &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		goRecovery.DefaultMessage(goRecovery.LocaleEnglish, goRecovery.KindInvalidCredential),
		"Identity verified.",
		goRecovery.DefaultMessage(goRecovery.LocaleEnglish, goRecovery.KindPasswordMismatch),
		goRecovery.DefaultMessage(goRecovery.LocaleEnglish, goRecovery.KindPasswordTooShort),
		"Password updated.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, text)
		}
	}

	if ok, _ := srv.CheckPassword(id, "abcdef"); !ok {
		t.Fatal("expected stub to store the new password")
	}
	if srv.Calls("/api/forgot-password/reset") != 1 {
		t.Fatalf("expected local checks to avoid the network, got %d reset calls", srv.Calls("/api/forgot-password/reset"))
	}
}

func TestRunGeneratedPassword(t *testing.T) {
	srv, url := newStub(t)
	id, _ := srv.AddAccount("Jean Dupont", "jean@example.com", "Default123")

	input := "Jean Dupont\njean@example.com\nDefault123\n:generate\n"
	var out bytes.Buffer
	if err := run(context.Background(), testConfig(url), zap.NewNop(), strings.NewReader(input), &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	var generated string
	for _, line := range strings.Split(out.String(), "\n") {
		if i := strings.Index(line, "Generated password: "); i >= 0 {
			generated = strings.TrimSpace(line[i+len("Generated password: "):])
		}
	}
	if generated == "" {
		t.Fatalf("expected generated password in output:\n%s", out.String())
	}
	if ok, _ := srv.CheckPassword(id, generated); !ok {
		t.Fatal("expected generated password to be stored")
	}
}

func TestRunReturnToLogin(t *testing.T) {
	srv, url := newStub(t)
	var out, metrics bytes.Buffer
	if err := run(context.Background(), testConfig(url), zap.NewNop(), strings.NewReader("Jean\n:login\n"), &out, &metrics); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(metrics.String(), "recovery_exit_total 1") {
		t.Fatalf("expected exit counter in metrics output, got:\n%s", metrics.String())
	}
	if !strings.Contains(out.String(), "Returning to login.") {
		t.Fatalf("expected exit message, got:\n%s", out.String())
	}
	if srv.Calls("/api/forgot-password/verify") != 0 {
		t.Fatal("expected no backend call after exit")
	}
}

func TestRunEndOfInputExits(t *testing.T) {
	_, url := newStub(t)
	var out bytes.Buffer
	if err := run(context.Background(), testConfig(url), zap.NewNop(), strings.NewReader(""), &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Returning to login.") {
		t.Fatalf("expected exit on EOF, got:\n%s", out.String())
	}
}

func TestRunOffersRetainedNameAndEmail(t *testing.T) {
	srv, url := newStub(t)
	if _, err := srv.AddAccount("Jean Dupont", "jean@example.com", "Default123"); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	input := strings.Join([]string{
		"Jean Dupont", "jean@example.com", "wrong",
		"", "", "Default123",
		cmdLogin,
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := run(context.Background(), testConfig(url), zap.NewNop(), strings.NewReader(input), &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Full name [Jean Dupont]: ", "Email [jean@example.com]: ", "Identity verified."} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, text)
		}
	}
	if srv.Calls("/api/forgot-password/verify") != 2 {
		t.Fatalf("expected two verify calls, got %d", srv.Calls("/api/forgot-password/verify"))
	}
}
