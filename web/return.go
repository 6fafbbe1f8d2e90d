// Package web serves the URLs the payment provider sends the customer back to.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"foodies-telegram/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// VerifyStartPrefix prefixes the /start payload that opens payment verification in the bot.
const VerifyStartPrefix = "verify_"

// Telegram only accepts [A-Za-z0-9_-] in a start payload, 64 characters at most.
var startPayloadOrderID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,57}$`)

// BotLink is the t.me link of the customer bot.
func BotLink(botUsername string) string {
	return "https://t.me/" + botUsername
}

// VerifyLink deep-links into the bot with the verification payload for orderID.
// It falls back to the plain bot link when orderID cannot be carried in a start payload.
func VerifyLink(botUsername, orderID string) string {
	if !startPayloadOrderID.MatchString(orderID) {
		return BotLink(botUsername)
	}
	return BotLink(botUsername) + "?start=" + VerifyStartPrefix + orderID
}

// NewRouter returns the payment return routes.
func NewRouter(botUsername string, log *slog.Logger) http.Handler {
	log = logger.OrDefault(log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	back := func(w http.ResponseWriter, r *http.Request) {
		orderID := r.URL.Query().Get("orderId")
		if orderID == "" {
			http.Redirect(w, r, BotLink(botUsername), http.StatusFound)
			return
		}
		http.Redirect(w, r, VerifyLink(botUsername, orderID), http.StatusFound)
	}
	r.Get("/payment/success", back)
	r.Get("/payment/cancel", back)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("payment return",
				"method", r.Method,
				"path", r.URL.Path,
				"order_id", r.URL.Query().Get("orderId"),
				"status", ww.Status(),
				"request_id", middleware.GetReqID(r.Context()),
				"duration", time.Since(start))
		})
	}
}

// Server runs the return routes until ctx is done.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

func NewServer(addr, botUsername string, log *slog.Logger) *Server {
	log = logger.OrDefault(log)
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(botUsername, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("payment return server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
