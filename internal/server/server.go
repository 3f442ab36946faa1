package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"plagiax/internal/app"
	"plagiax/internal/ratelimit"
	"plagiax/internal/util"
	"plagiax/pkg/ai"
	"plagiax/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	RedisAddr     string
	RedisPassword string

	MaxUploadBytes    int64
	AllowedExtensions []string
	AllowedOrigins    []string
	TrustedProxies    *util.TrustedProxies
	CookieConsentName string

	SignupRateLimitPerMinute int
	LoginRateLimitPerMinute  int
	CheckRateLimitPerMinute  int
}

// Server exposes the HTTP API.
type Server struct {
	app               *app.App
	mux               *http.ServeMux
	maxUploadBytes    int64
	allowedExtensions map[string]struct{}
	allowedOrigins    []string
	trustedProxies    *util.TrustedProxies
	cookieConsentName string
	signupLimiter     *ratelimit.FixedWindowLimiter
	loginLimiter      *ratelimit.FixedWindowLimiter
	checkLimiter      *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured. Rate limiting is
// disabled when no Redis address is given.
func New(cfg Config) (*Server, error) {
	s := &Server{
		app:               cfg.App,
		mux:               http.NewServeMux(),
		maxUploadBytes:    normalizeMaxBytes(cfg.MaxUploadBytes),
		allowedExtensions: normalizeExtensions(cfg.AllowedExtensions),
		allowedOrigins:    cfg.AllowedOrigins,
		trustedProxies:    cfg.TrustedProxies,
		cookieConsentName: cfg.CookieConsentName,
	}
	if s.cookieConsentName == "" {
		s.cookieConsentName = "plagiax_cookie_consent"
	}
	if cfg.RedisAddr != "" {
		rateWindow := time.Minute
		newLimiter := func(name string, limit int, fallback int) (*ratelimit.FixedWindowLimiter, error) {
			if limit <= 0 {
				limit = fallback
			}
			prefix := "plagiax:ratelimit:" + name
			limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, rateWindow)
			if err != nil {
				return nil, fmt.Errorf("init %s limiter: %w", name, err)
			}
			return limiter, nil
		}
		var err error
		if s.signupLimiter, err = newLimiter("signup", cfg.SignupRateLimitPerMinute, 5); err != nil {
			return nil, err
		}
		if s.loginLimiter, err = newLimiter("login", cfg.LoginRateLimitPerMinute, 10); err != nil {
			return nil, err
		}
		if s.checkLimiter, err = newLimiter("check", cfg.CheckRateLimitPerMinute, 6); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithCORS(s.allowedOrigins, h)
	h = util.WithSecurityHeaders(h)
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))

	// checks
	s.mux.HandleFunc("/api/checks", s.handleChecks)
	s.mux.HandleFunc("/api/checks/", s.handleCheckByID)

	// history (auth required)
	s.mux.Handle("/api/history", s.authenticated(s.handleHistory))
	s.mux.Handle("/api/history/stats", s.authenticated(s.handleHistoryStats))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			s.audit(r, "plagiax.authorize", "fail")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

// optionalUser resolves the caller when a bearer token is present.
// A present but invalid token is rejected rather than downgraded to
// anonymous.
func (s *Server) optionalUser(r *http.Request) (domain.User, bool, bool) {
	if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
		return domain.User{}, false, true
	}
	user, ok := s.authorize(r)
	if !ok {
		return domain.User{}, false, false
	}
	return user, true, true
}

// auth handlers
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		s.audit(r, "plagiax.signup", "rate_limited")
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "plagiax.signup", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(req.Email, req.Password, req.FullName)
	if err != nil {
		s.audit(r, "plagiax.signup", "fail", "reason", err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.audit(r, "plagiax.signup", "success", "user_id", user.ID)
	s.setConsentCookie(w, r)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "plagiax.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "plagiax.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "plagiax.login", "fail", "reason", err.Error())
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.audit(r, "plagiax.login", "success", "user_id", user.ID)
	s.setConsentCookie(w, r)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.audit(r, "plagiax.logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		var req updateMeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := s.app.UpdateProfile(user.ID, req.FullName)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		methodNotAllowed(w)
	}
}

// check handlers
func (s *Server) handleChecks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	user, authed, ok := s.optionalUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !s.allowRate(w, r, s.checkLimiter, "too many check submissions") {
		s.audit(r, "plagiax.check", "rate_limited")
		return
	}

	input, err := s.readCheckInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := ""
	if authed {
		email = user.Email
	}
	report, err := s.app.SubmitCheck(r.Context(), email, input)
	if err != nil {
		writeCheckError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// readCheckInput accepts either a JSON body or a multipart file upload.
func (s *Server) readCheckInput(w http.ResponseWriter, r *http.Request) (app.CheckInput, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if s.maxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return app.CheckInput{}, errors.New("invalid form data")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return app.CheckInput{}, errors.New("file is required (field: file)")
		}
		defer file.Close()
		if !s.isExtensionAllowed(header.Filename) {
			return app.CheckInput{}, errors.New("unsupported file type")
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return app.CheckInput{}, errors.New("read upload failed")
		}
		return app.CheckInput{
			Document: &ai.DataURI{MimeType: mimeForFile(header.Filename), Data: data},
			FileName: header.Filename,
			Title:    r.FormValue("title"),
		}, nil
	}

	var req checkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxUploadBytes)).Decode(&req); err != nil {
		return app.CheckInput{}, errors.New("invalid JSON body")
	}
	input := app.CheckInput{Text: req.TextContent, FileName: req.FileName, Title: req.Title}
	if req.DocumentDataURI != "" {
		doc, err := ai.ParseDataURI(req.DocumentDataURI)
		if err != nil {
			return app.CheckInput{}, errors.New("invalid document data URI")
		}
		if req.FileName != "" && !s.isExtensionAllowed(req.FileName) {
			return app.CheckInput{}, errors.New("unsupported file type")
		}
		input.Document = &doc
	}
	return input, nil
}

func (s *Server) handleCheckByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/checks/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if id, ok := strings.CutSuffix(rest, "/download"); ok {
		s.handleCheckDownload(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	report, err := s.app.GetReport(r.Context(), rest)
	if err != nil {
		writeCheckError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleCheckDownload redirects to a presigned object URL when the
// storage backend supports it, otherwise streams through the server.
func (s *Server) handleCheckDownload(w http.ResponseWriter, r *http.Request, id string) {
	url, err := s.app.DocumentURL(r.Context(), id)
	if err != nil {
		writeCheckError(w, err)
		return
	}
	if url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	rc, contentType, fileName, err := s.app.OpenDocument(r.Context(), id)
	if err != nil {
		writeCheckError(w, err)
		return
	}
	defer rc.Close()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if fileName != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	}
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("stream document failed", "submissionId", id, "err", err)
	}
}

// history handlers
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.app.History(user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.HistoryStats(user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeCheckError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNoContent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrExtractionFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, app.ErrReportFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, app.ErrReportNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// setConsentCookie records cookie consent for a year, matching the
// banner behavior of the web client. Callers that already carry the
// cookie keep their original expiry.
func (s *Server) setConsentCookie(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(s.cookieConsentName); err == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieConsentName,
		Value:    "true",
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) isExtensionAllowed(fileName string) bool {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		return false
	}
	_, ok := s.allowedExtensions[ext]
	return ok
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type updateMeRequest struct {
	FullName string `json:"fullName"`
}

type checkRequest struct {
	TextContent     string `json:"textContent"`
	DocumentDataURI string `json:"documentDataUri"`
	FileName        string `json:"fileName"`
	Title           string `json:"title"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 20 * 1024 * 1024
	}
	return value
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = []string{".pdf", ".docx", ".txt", ".html"}
	}
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func mimeForFile(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
