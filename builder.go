package goRecovery

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type flowHooks struct {
	onComplete func()
	onExit     func()
	onChange   func(View)
}

// Builder assembles a Flow. A Builder is single use.
type Builder struct {
	config     Config
	backend    Backend
	httpClient *http.Client
	logger     *zap.Logger
	auditSink  AuditSink
	hooks      flowHooks

	built bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL is a shortcut for setting Config.API.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithBackend replaces the HTTP backend. BaseURL is then not required.
func (b *Builder) WithBackend(backend Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPClient sets the client used by the default HTTP backend.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// OnComplete registers the callback run once the password has been reset.
func (b *Builder) OnComplete(fn func()) *Builder {
	b.hooks.onComplete = fn
	return b
}

// OnExit registers the callback run by ReturnToLogin.
func (b *Builder) OnExit(fn func()) *Builder {
	b.hooks.onExit = fn
	return b
}

// OnChange registers a listener called with a fresh View after every state
// change. It runs on the submitting goroutine, outside the Flow's lock.
func (b *Builder) OnChange(fn func(View)) *Builder {
	b.hooks.onChange = fn
	return b
}

func (b *Builder) Build() (*Flow, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	cfg.applyDefaults()
	if b.auditSink != nil {
		cfg.Audit.Enabled = true
	}

	backend := b.backend
	if backend == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		hb, err := newHTTPBackend(cfg, b.httpClient)
		if err != nil {
			return nil, err
		}
		backend = hb
	} else {
		if cfg.API.BaseURL == "" {
			cfg.API.BaseURL = "http://in-process.invalid"
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b.built = true
	return newFlow(cfg, backend, logger, b.auditSink, b.hooks), nil
}
