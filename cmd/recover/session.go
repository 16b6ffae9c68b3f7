package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	goRecovery "github.com/MrEthical07/goRecovery"
	"github.com/MrEthical07/goRecovery/metrics/export/prometheus"
)

// Typed at any prompt.
const (
	cmdLogin    = ":login"
	cmdGenerate = ":generate"
)

var errExit = errors.New("returned to login")

type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	termFd int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, termFd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.termFd = int(f.Fd())
	}
	return p
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	s, err := p.in.ReadString('\n')
	if err != nil && (s == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	s = strings.TrimRight(s, "\r\n")
	if strings.TrimSpace(s) == cmdLogin {
		return "", errExit
	}
	return s, nil
}

// lineOr offers def in the prompt and returns it when the answer is blank.
func (p *prompter) lineOr(label, def string) (string, error) {
	if def == "" {
		return p.line(label)
	}
	s, err := p.line(fmt.Sprintf("%s [%s]", label, def))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return s, nil
}

// secret reads without echo on a terminal and falls back to a plain line.
func (p *prompter) secret(label string) (string, error) {
	if p.termFd < 0 {
		return p.line(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	raw, err := term.ReadPassword(p.termFd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(raw)) == cmdLogin {
		return "", errExit
	}
	return string(raw), nil
}

// run drives a Flow until the password is reset, the user returns to login
// or input ends. When metricsOut is set the flow counters are written to it
// in Prometheus text format before returning.
func run(ctx context.Context, cfg goRecovery.Config, logger *zap.Logger, in io.Reader, out, metricsOut io.Writer) error {
	done := false
	b := goRecovery.New().
		WithConfig(cfg).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		b.WithAuditSink(goRecovery.NewZapSink(logger.Named("audit")))
	}
	flow, err := b.
		OnComplete(func() {
			done = true
			fmt.Fprintln(out, "Password updated. You can now sign in.")
		}).
		OnExit(func() {
			fmt.Fprintln(out, "Returning to login.")
		}).
		Build()
	if err != nil {
		return err
	}
	defer flow.Close()
	if metricsOut != nil {
		defer func() { _, _ = io.WriteString(metricsOut, prometheus.New(flow).Render()) }()
	}

	p := newPrompter(in, out)
	fmt.Fprintf(out, "Forgot password. Type %s at any prompt to go back.\n", cmdLogin)

	for !done {
		if err := ctx.Err(); err != nil {
			return err
		}

		var stepErr error
		switch flow.Phase() {
		case goRecovery.PhaseVerifying:
			stepErr = verifyStep(ctx, flow, p)
		case goRecovery.PhaseResetting:
			stepErr = resetStep(ctx, flow, p)
		}

		switch {
		case errors.Is(stepErr, errExit), errors.Is(stepErr, io.EOF):
			flow.ReturnToLogin()
			return nil
		case stepErr == nil:
		default:
			var fe *goRecovery.FlowError
			if !errors.As(stepErr, &fe) {
				return stepErr
			}
			fmt.Fprintf(out, "Error: %s\n", fe.Message)
		}
	}
	return nil
}

func verifyStep(ctx context.Context, flow *goRecovery.Flow, p *prompter) error {
	// A failed attempt keeps name and email on the flow for the retry.
	v := flow.View()
	name, err := p.lineOr("Full name", v.Name)
	if err != nil {
		return err
	}
	email, err := p.lineOr("Email", v.Email)
	if err != nil {
		return err
	}
	def, err := p.secret("Default password")
	if err != nil {
		return err
	}

	if err := flow.SubmitVerification(ctx, goRecovery.VerificationRequest{Name: name, Email: email, DefaultPassword: def}); err != nil {
		return err
	}
	fmt.Fprintln(p.out, "Identity verified. Choose a new password.")
	return nil
}

func resetStep(ctx context.Context, flow *goRecovery.Flow, p *prompter) error {
	fmt.Fprintf(p.out, "Type %s to have a password generated.\n", cmdGenerate)
	newPassword, err := p.secret("New password")
	if err != nil {
		return err
	}

	var confirm string
	if strings.TrimSpace(newPassword) == cmdGenerate {
		if newPassword, err = flow.GeneratePassword(); err != nil {
			return err
		}
		confirm = newPassword
		fmt.Fprintf(p.out, "Generated password: %s\n", newPassword)
	} else if confirm, err = p.secret("Confirm password"); err != nil {
		return err
	}

	return flow.SubmitReset(ctx, newPassword, confirm)
}
