package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/efreitasn/mocktrader/internal/service"
)

// NewRouter creates a chi router with all routes registered. Everything
// except /healthz, /users and /login requires a bearer token.
func NewRouter(
	authSvc *service.AuthService,
	orderSvc *service.OrderService,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogging(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authH := NewAuthHandler(authSvc, logger)
	orderH := NewOrderHandler(orderSvc, logger)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Login accepts form bodies, so it sits outside the JSON check.
	r.Post("/login", authH.Login)

	r.Group(func(r chi.Router) {
		r.Use(contentTypeJSON)
		r.Post("/users", authH.Register)

		r.Group(func(r chi.Router) {
			r.Use(authenticate(authSvc, logger))

			r.Post("/orders", orderH.PlaceOrder)
			r.Get("/orders", orderH.ListOrders)
			r.Get("/orders/{order_id}", orderH.GetOrder)
			r.Put("/orders/{order_id}", orderH.AmendOrder)
			r.Delete("/orders/{order_id}", orderH.CancelOrder)
			r.Post("/orders/{order_id}/execute", orderH.ExecuteOrder)

			r.Get("/portfolio", orderH.GetPortfolio)
		})
	})

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, duration and request id using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects POST, PUT and PATCH requests whose Content-Type
// is not application/json.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
