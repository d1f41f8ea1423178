package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/metrics"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the handlers call into.
type Services struct {
	Reservations domain.ReservationService
	Gallery      domain.GalleryService
	Contact      domain.ContactService
	Store        Pinger
}

// HTTPServer serves the public and admin REST API.
type HTTPServer struct {
	cfg    config.HTTPConfig
	svc    Services
	server *http.Server
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.HTTPConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{cfg: cfg, svc: svc, logger: logger}
	if srv.cfg.MaxUploadBytes <= 0 {
		srv.cfg.MaxUploadBytes = models.MaxUploadBytes
	}

	router := mux.NewRouter()
	router.Use(routeLabelMiddleware)
	router.HandleFunc("/healthz", srv.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/readyz", srv.handleReadyz).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/reservations", srv.handleCreateReservation).Methods(http.MethodPost)
	api.HandleFunc("/contact", srv.handleContact).Methods(http.MethodPost)
	api.HandleFunc("/gallery", srv.handleListGallery).Methods(http.MethodGet)
	api.HandleFunc("/gallery/{imageId}/like", srv.handleLike).Methods(http.MethodPost)
	api.HandleFunc("/gallery/{imageId}/comments", srv.handleAddComment).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/reservations", srv.handleListReservations).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/export", srv.handleExportReservations).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/{referenceNumber}", srv.handleFindReservation).Methods(http.MethodGet)
	admin.HandleFunc("/update-reservation/{id}", srv.handleUpdateStatus).Methods(http.MethodPut)
	admin.HandleFunc("/upload", srv.handleUpload).Methods(http.MethodPost)
	admin.HandleFunc("/images", srv.handleListGallery).Methods(http.MethodGet)
	admin.HandleFunc("/images/{imageId}", srv.handleDeleteImage).Methods(http.MethodDelete)
	admin.HandleFunc("/images/{imageId}/comments", srv.handleDeleteComment).Methods(http.MethodDelete)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	// subrouters do not inherit these
	for _, r := range []*mux.Router{router, api, admin} {
		r.NotFoundHandler = notFound
		r.MethodNotAllowedHandler = notAllowed
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
	})

	handler := loggingMiddleware(logger, corsHandler.Handler(newRateLimiter(cfg.RateLimit).Wrap(router)))

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	return srv
}

// Handler exposes the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Store.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusFor maps service errors onto HTTP status codes. Anything unknown is a
// server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrMissingField),
		errors.Is(err, models.ErrCommentIndexOutOfRange),
		errors.Is(err, models.ErrEmptyComment),
		errors.Is(err, models.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrThrottled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Client errors carry the
// error text; server errors carry fallback and are logged.
func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := statusFor(err)
	msg := err.Error()
	switch code {
	case http.StatusNotFound:
		msg = fallbackNotFound(r)
	case http.StatusInternalServerError:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Str("request_id", requestID(r)).Msg(fallback)
		msg = fallback
	}
	writeError(w, code, msg)
}

func fallbackNotFound(r *http.Request) string {
	vars := mux.Vars(r)
	switch {
	case vars["imageId"] != "":
		return "Image not found"
	case vars["referenceNumber"] != "", vars["id"] != "":
		return "Reservation not found"
	default:
		return "not found"
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", models.ErrMissingField)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type (
	requestIDKey struct{}
	routeKey     struct{}
)

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// routeLabelMiddleware hands the matched path template back to loggingMiddleware.
func routeLabelMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if label, ok := r.Context().Value(routeKey{}).(*string); ok {
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					*label = tpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		route := "unmatched"
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = context.WithValue(ctx, routeKey{}, &route)
		r = r.WithContext(ctx)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(route, strconv.Itoa(recorder.status))

		logger.Info().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("dur", time.Since(start)).
			Msg("http")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
