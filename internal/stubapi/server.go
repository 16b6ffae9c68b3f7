package stubapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/MrEthical07/goRecovery/internal/api"
	"github.com/MrEthical07/goRecovery/jwt"
	"github.com/MrEthical07/goRecovery/password"
)

// Response codes written in the body of rejected calls.
const (
	CodeBadRequest         = "bad_request"
	CodeMissingField       = "missing_field"
	CodeUserNotFound       = "user_not_found"
	CodeInvalidCredentials = "invalid_credentials"
	CodeNoDefaultPassword  = "no_default_password"
	CodeRateLimited        = "rate_limited"
	CodePasswordMismatch   = "password_mismatch"
	CodePasswordTooShort   = "password_too_short"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeTokenUsed          = "token_used"
	CodeInternal           = "internal_error"
)

const (
	defaultVerifyPath  = "/api/forgot-password/verify"
	defaultResetPath   = "/api/forgot-password/reset"
	defaultMaxFailures = 5
	defaultMinLength   = 6
	maxBodyBytes       = 16 << 10
)

// Account is a console user known to the stub.
type Account struct {
	ID                  string
	Name                string
	Email               string
	DefaultPasswordHash string
	PasswordHash        string
	UpdatedAt           time.Time
}

// Config configures a Server. Tokens, Hasher and Ledger are required.
type Config struct {
	Tokens         *jwt.Manager
	Hasher         *password.Argon2
	Ledger         Ledger
	Logger         *zap.Logger
	MaxFailures    int
	MinLength      int
	VerifyPath     string
	ResetPath      string
	AllowedOrigins []string
	// Delay is added before every response, for exercising client timeouts.
	Delay time.Duration
}

// Server serves the verify and reset endpoints over in-memory accounts.
type Server struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.RWMutex
	accounts map[string]*Account
	byLogin  map[string]string
	calls    map[string]int
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Tokens == nil || cfg.Hasher == nil || cfg.Ledger == nil {
		return nil, errors.New("stubapi: tokens, hasher and ledger are required")
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = defaultMinLength
	}
	if cfg.VerifyPath == "" {
		cfg.VerifyPath = defaultVerifyPath
	}
	if cfg.ResetPath == "" {
		cfg.ResetPath = defaultResetPath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		accounts: make(map[string]*Account),
		byLogin:  make(map[string]string),
		calls:    make(map[string]int),
	}, nil
}

func loginKey(name, email string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.ToLower(strings.TrimSpace(email))
}

// AddAccount registers an account and returns its id. An empty
// defaultPassword leaves the account without one.
func (s *Server) AddAccount(name, email, defaultPassword string) (string, error) {
	var hash string
	if defaultPassword != "" {
		var err error
		if hash, err = s.cfg.Hasher.Hash(defaultPassword); err != nil {
			return "", err
		}
	}

	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := loginKey(name, email)
	if _, exists := s.byLogin[key]; exists {
		return "", errors.New("stubapi: account already exists")
	}
	s.accounts[id] = &Account{ID: id, Name: name, Email: email, DefaultPasswordHash: hash}
	s.byLogin[key] = id
	return id, nil
}

// Account returns a copy of the account with id.
func (s *Server) Account(id string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *acct, true
}

// CheckPassword reports whether plain is the account's current password.
func (s *Server) CheckPassword(id, plain string) (bool, error) {
	acct, ok := s.Account(id)
	if !ok || acct.PasswordHash == "" {
		return false, nil
	}
	return s.cfg.Hasher.Verify(plain, acct.PasswordHash)
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[path]
}

// Handler returns the routed handler wrapped with CORS.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(s.cfg.VerifyPath, s.handleVerify).Methods(http.MethodPost)
	r.HandleFunc(s.cfg.ResetPath, s.handleReset).Methods(http.MethodPost)
	r.Use(s.countCalls)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", api.RequestIDHeader},
	}).Handler(r)
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.mu.Unlock()

		if s.cfg.Delay > 0 {
			select {
			case <-time.After(s.cfg.Delay):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.logger.With(zap.String("request_id", r.Header.Get(api.RequestIDHeader)))

	var req api.VerifyRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.DefaultPassword == "" {
		writeError(w, http.StatusBadRequest, CodeMissingField, "name, email and default password are required")
		return
	}

	throttleKey := strings.ToLower(strings.TrimSpace(req.Email))
	failures, err := s.cfg.Ledger.Failures(ctx, throttleKey)
	if err != nil {
		log.Error("ledger read failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "")
		return
	}
	if failures >= int64(s.cfg.MaxFailures) {
		writeError(w, http.StatusTooManyRequests, CodeRateLimited, "")
		return
	}

	s.mu.RLock()
	id, found := s.byLogin[loginKey(req.Name, req.Email)]
	var acct Account
	if found {
		acct = *s.accounts[id]
	}
	s.mu.RUnlock()

	if !found {
		s.recordFailure(ctx, log, throttleKey)
		writeError(w, http.StatusNotFound, CodeUserNotFound, "")
		return
	}
	if acct.DefaultPasswordHash == "" {
		writeError(w, http.StatusConflict, CodeNoDefaultPassword, "")
		return
	}

	ok, err := s.cfg.Hasher.Verify(req.DefaultPassword, acct.DefaultPasswordHash)
	if err != nil {
		log.Error("stored hash unreadable", zap.String("account", acct.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "")
		return
	}
	if !ok {
		s.recordFailure(ctx, log, throttleKey)
		writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "")
		return
	}

	if err := s.cfg.Ledger.ClearFailures(ctx, throttleKey); err != nil {
		log.Warn("ledger clear failed", zap.Error(err))
	}

	token, claims, err := s.cfg.Tokens.Issue(acct.ID)
	if err != nil {
		log.Error("token issue failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "")
		return
	}

	log.Info("identity verified", zap.String("account", acct.ID), zap.String("jti", claims.ID))
	writeJSON(w, http.StatusOK, api.Envelope{Success: boolPtr(true), Token: token})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.logger.With(zap.String("request_id", r.Header.Get(api.RequestIDHeader)))

	var req api.ResetRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, CodeMissingField, "token is required")
		return
	}

	claims, err := s.cfg.Tokens.Parse(req.Token)
	if err != nil {
		if errors.Is(err, gjwt.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, CodeTokenExpired, "")
			return
		}
		writeError(w, http.StatusUnauthorized, CodeInvalidToken, "")
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, CodePasswordMismatch, "")
		return
	}
	if utf8.RuneCountInString(req.NewPassword) < s.cfg.MinLength {
		writeError(w, http.StatusBadRequest, CodePasswordTooShort, "")
		return
	}

	s.mu.RLock()
	_, exists := s.accounts[claims.AccountID]
	s.mu.RUnlock()
	if !exists {
		writeError(w, http.StatusUnauthorized, CodeInvalidToken, "")
		return
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	fresh, err := s.cfg.Ledger.ConsumeToken(ctx, claims.ID, ttl)
	if err != nil {
		log.Error("ledger consume failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "")
		return
	}
	if !fresh {
		writeError(w, http.StatusGone, CodeTokenUsed, "")
		return
	}

	hash, err := s.cfg.Hasher.Hash(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "")
		return
	}

	s.mu.Lock()
	if acct, ok := s.accounts[claims.AccountID]; ok {
		acct.PasswordHash = hash
		acct.DefaultPasswordHash = ""
		acct.UpdatedAt = time.Now()
	}
	s.mu.Unlock()

	log.Info("password reset", zap.String("account", claims.AccountID), zap.String("jti", claims.ID))
	writeJSON(w, http.StatusOK, api.Envelope{Success: boolPtr(true), Message: "Password updated"})
}

func (s *Server) recordFailure(ctx context.Context, log *zap.Logger, key string) {
	if _, err := s.cfg.Ledger.RecordFailure(ctx, key); err != nil {
		log.Warn("ledger record failed", zap.Error(err))
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "request body must be JSON")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, api.Envelope{Success: boolPtr(false), Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body api.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func boolPtr(v bool) *bool { return &v }

// NewInMemory assembles a Server with a random HS256 signing secret, the
// given Argon2 cost and a MemoryLedger. The returned func stops the ledger.
func NewInMemory(hashCost password.Config, tokenTTL time.Duration, logger *zap.Logger) (*Server, func(), error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, nil, err
	}
	tokens, err := jwt.NewManager(jwt.Config{TTL: tokenTTL, SigningMethod: jwt.MethodHS256, PrivateKey: secret, Issuer: "recovery-stub"})
	if err != nil {
		return nil, nil, err
	}
	hasher, err := password.NewArgon2(hashCost)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := NewMemoryLedger(10*time.Minute, time.Minute)
	if err != nil {
		return nil, nil, err
	}

	srv, err := NewServer(Config{Tokens: tokens, Hasher: hasher, Ledger: ledger, Logger: logger})
	if err != nil {
		_ = ledger.Close()
		return nil, nil, err
	}
	return srv, func() { _ = ledger.Close() }, nil
}

// FastHashCost is the cheapest Argon2 cost the hasher accepts.
func FastHashCost() password.Config {
	return password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}
