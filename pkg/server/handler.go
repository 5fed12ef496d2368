package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"src.nixrepl.dev/pkg/service"
)

// TokenHeader is the request header carrying the access token.
const TokenHeader = "X-Nix-Repl-Token"

// Handler serves evaluation requests over HTTP. Every path is treated the
// same.
type Handler struct {
	svc            *service.Service
	token          string
	maxBodyBytes   int64
	allowedOrigins []string
	// Nil when the number of concurrent evaluations is not limited.
	sem chan struct{}
}

// NewHandler returns a Handler that evaluates code with svc, using the
// token, limits and CORS settings in cfg.
func NewHandler(cfg Config, svc *service.Service) *Handler {
	h := &Handler{
		svc:            svc,
		token:          cfg.Token,
		maxBodyBytes:   cfg.MaxBodyBytes,
		allowedOrigins: cfg.AllowedOrigins,
	}
	if cfg.MaxConcurrent > 0 {
		h.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cors := h.setCORSHeaders(w, r)
	if cors && r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeText(w, http.StatusMethodNotAllowed, "Only POST")
		return
	}
	if h.token != "" && !h.validToken(r.Header.Get(TokenHeader)) {
		logger.Println("rejected request from", r.RemoteAddr, "with bad token")
		writeText(w, http.StatusForbidden, "Forbidden")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "Payload too large")
		} else {
			logger.Println("cannot read request body:", err)
			writeText(w, http.StatusBadRequest, "Bad request")
		}
		return
	}
	if !utf8.Valid(body) {
		writeText(w, http.StatusBadRequest, "Bad request")
		return
	}
	req, err := service.DecodeRequest(body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	release, err := h.acquire(r.Context())
	if err != nil {
		logger.Println("client went away while waiting:", err)
		return
	}
	resp := h.svc.Eval(r.Context(), req)
	release()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.JSON()); err != nil {
		logger.Println("cannot write response:", err)
	}
}

func (h *Handler) validToken(got string) bool {
	got = strings.TrimSpace(got)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

// Waits for an evaluation slot if the number of concurrent evaluations is
// limited.
func (h *Handler) acquire(ctx context.Context) (func(), error) {
	if h.sem == nil {
		return func() {}, nil
	}
	select {
	case h.sem <- struct{}{}:
		return func() { <-h.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Sets the CORS headers if CORS is enabled, and returns whether it is.
// Access-Control-Allow-Origin is only set for allowed origins.
func (h *Handler) setCORSHeaders(w http.ResponseWriter, r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return false
	}
	origin := r.Header.Get("Origin")
	if origin != "" && h.originAllowed(origin) {
		hd := w.Header()
		hd.Set("Access-Control-Allow-Origin", origin)
		hd.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		hd.Set("Access-Control-Allow-Headers", "Content-Type, "+TokenHeader)
		hd.Add("Vary", "Origin")
	}
	return true
}

func (h *Handler) originAllowed(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, host) {
			return true
		}
	}
	return false
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, text)
}
