// Package server exposes the scan trigger and a health check over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hray3182/remindbot/internal/reminder"
)

// Trigger runs a secret-guarded scan.
type Trigger interface {
	Trigger(ctx context.Context, secret string, now time.Time) (reminder.Summary, error)
}

type Server struct {
	trigger Trigger
	now     func() time.Time
	log     zerolog.Logger
	http    *http.Server
}

type checkRequest struct {
	APIKey string `json:"apiKey"`
}

type checkResponse struct {
	Success    bool   `json:"success"`
	Candidates int    `json:"candidates"`
	Notified   int    `json:"notified"`
	Failed     int    `json:"failed"`
	Message    string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(addr string, trigger Trigger, log zerolog.Logger) *Server {
	s := &Server{
		trigger: trigger,
		now:     time.Now,
		log:     log.With().Str("component", "http").Logger(),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/check-reminders", s.checkReminders)
	mux.HandleFunc("GET /{$}", s.health)
	return mux
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Reminder bot server is running!")
}

func (s *Server) checkReminders(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-API-Key")
	if secret == "" {
		var body checkRequest
		// A missing or malformed body just means no key was sent.
		_ = json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body)
		secret = body.APIKey
	}

	sum, err := s.trigger.Trigger(r.Context(), secret, s.now())
	switch {
	case errors.Is(err, reminder.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	case err != nil:
		s.log.Error().Err(err).Msg("check reminders failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		Success:    true,
		Candidates: sum.Candidates,
		Notified:   sum.Notified,
		Failed:     sum.Failed,
		Message:    fmt.Sprintf("Successfully processed %d todos, sent %d notifications", sum.Candidates, sum.Notified),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
