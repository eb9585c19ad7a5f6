package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SmartLoan360X/server/internal/agent/model"
	errx "github.com/SmartLoan360X/server/internal/core/error"
	"github.com/SmartLoan360X/server/internal/market"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

// Assistant is the conversation surface the HTTP layer drives.
type Assistant interface {
	Start(ctx context.Context) (*model.TurnResult, error)
	Chat(ctx context.Context, sessionID, utterance string) (*model.TurnResult, error)
	Upload(ctx context.Context, sessionID, path string) (*model.TurnResult, error)
	SetPersona(ctx context.Context, sessionID, persona string) (*model.ConversationState, error)
	UpdateProfile(ctx context.Context, sessionID string, u model.ProfileUpdate) (*model.ConversationState, error)
	Session(ctx context.Context, sessionID string) (*model.ConversationState, error)
	EndSession(ctx context.Context, sessionID string) error
	Personas() []string
	Offline() bool
}

// DocumentStore persists uploaded images and returns their path.
type DocumentStore interface {
	Save(originalName string, r io.Reader) (string, error)
	Remove(path string) error
}

type Config struct {
	Addr           string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"120s"`
	MaxUploadBytes int64         `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"`
}

type Server struct {
	router    *chi.Mux
	cfg       Config
	assistant Assistant
	documents DocumentStore
}

func NewServer(cfg Config, assistant Assistant, documents DocumentStore, prices *market.Provider) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		cfg:       cfg,
		assistant: assistant,
		documents: documents,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/personas", s.listPersonas)
		r.Post("/prequalify", s.prequalify)
		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/messages", s.postMessage)
			r.Post("/documents", s.postDocument)
			r.Put("/persona", s.putPersona)
			r.Put("/profile", s.putProfile)
		})
		if prices != nil {
			r.Mount("/market", market.Routes(prices))
		}
	})
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", s.cfg.Addr).Msg("API server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logx.Info().Msg("API server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "offline": s.assistant.Offline()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logx.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": errx.MessageOf(err)})
}

// decodeJSON reads a single JSON object. Unknown fields and wrong types are rejected.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errx.Validationf("invalid JSON body: %v", err)
	}
	return nil
}
