package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ev-parking/internal/logging"
	"ev-parking/internal/parking"
)

type Options struct {
	Port        string
	ServiceName string
	Cities      []string
}

type Server struct {
	httpServer *http.Server
}

// NewRouter builds the routed handler without binding a listener.
func NewRouter(service *parking.InstrumentedService, opts Options) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}
	if err := registry.Register(parking.NewOccupancyCollector(service.Directory())); err != nil {
		return nil, fmt.Errorf("register occupancy collector: %w", err)
	}

	handler := NewHandler(service, opts.ServiceName, opts.Cities)

	r := chi.NewRouter()

	useMiddleware(r)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/facilities", handler.CreateFacility)
		r.Get("/topology", handler.GetTopology)

		r.Route("/parking", func(r chi.Router) {
			r.Post("/park", handler.ParkVehicle)
			r.Post("/remove", handler.RemoveVehicle)
			r.Get("/status", handler.GetStatus)
			r.Get("/report", handler.GetChargeReport)
			r.Get("/find", handler.FindSlots)
		})

		r.Route("/chargers/{chargerID}", func(r chi.Router) {
			r.Get("/", handler.GetCharger)
			r.Post("/tick", handler.TickCharger)
		})
	})

	return r, nil
}

// useMiddleware installs the shared chain. Tracing runs outermost so request
// logs and panic recovery see the active span.
func useMiddleware(r chi.Router) {
	r.Use(TracingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
}

func NewServer(service *parking.InstrumentedService, opts Options) (*Server, error) {
	router, err := NewRouter(service, opts)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: httpServer}, nil
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
