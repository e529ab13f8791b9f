package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server exposes the Telldus façade as a JSON API.
type Server struct {
	telldus ports.TelldusPort
	logger  ports.Logger
	metrics http.Handler
	now     func() time.Time
}

type Option func(*Server)

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func NewServer(telldus ports.TelldusPort, logger ports.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	s := &Server{telldus: telldus, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/profile", s.passThrough(s.telldus.GetProfile))
		r.Get("/clients", s.passThrough(s.telldus.ListClients))
		r.Get("/events", s.passThrough(s.telldus.ListEvents))

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Delete("/", s.deviceAction(s.telldus.RemoveDevice))
				r.Get("/history", s.handleDeviceHistory)

				r.Put("/on", s.deviceAction(func(ctx context.Context, id model.ID) (json.RawMessage, error) {
					return s.telldus.OnOffDevice(ctx, id, true)
				}))
				r.Put("/off", s.deviceAction(func(ctx context.Context, id model.ID) (json.RawMessage, error) {
					return s.telldus.OnOffDevice(ctx, id, false)
				}))
				r.Put("/up", s.deviceAction(func(ctx context.Context, id model.ID) (json.RawMessage, error) {
					return s.telldus.UpDownDevice(ctx, id, true)
				}))
				r.Put("/down", s.deviceAction(func(ctx context.Context, id model.ID) (json.RawMessage, error) {
					return s.telldus.UpDownDevice(ctx, id, false)
				}))
				r.Put("/stop", s.deviceAction(s.telldus.StopDevice))
				r.Put("/bell", s.deviceAction(s.telldus.BellDevice))
				r.Put("/learn", s.deviceAction(s.telldus.DeviceLearn))
				r.Put("/dim", s.handleDim)

				r.Post("/command", s.handleCommand)
				r.Put("/name", s.handleDeviceName)
				r.Put("/model", s.handleDeviceModel)
				r.Put("/protocol", s.handleDeviceProtocol)
				r.Put("/parameter", s.handleDeviceParameter)
			})
		})

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSensor)
				r.Put("/name", s.handleSensorName)
				r.Put("/ignore", s.handleSensorIgnore)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
