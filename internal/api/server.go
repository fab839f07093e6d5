// Package api provides the HTTP REST API and WebSocket server for Luma Core.
//
// It exposes account authentication, the device registry, device sharing,
// and real-time status updates to web and mobile clients. Every device
// operation is gated by the caller's access record: what a route allows
// depends on the permission set the access authority derives for the
// (user, device) pair.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lumahub/luma-core/internal/access"
	"github.com/lumahub/luma-core/internal/audit"
	"github.com/lumahub/luma-core/internal/auth"
	"github.com/lumahub/luma-core/internal/device"
	"github.com/lumahub/luma-core/internal/infrastructure/config"
	"github.com/lumahub/luma-core/internal/infrastructure/logging"
	"github.com/lumahub/luma-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CommandPublisher sends device commands onto the message bus.
// The MQTT client satisfies it; tests substitute a recorder.
type CommandPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Registry  *device.Registry
	Authority *access.Authority
	Users     auth.UserRepository
	Tokens    auth.TokenRepository
	Audit     audit.Repository // optional: events are not recorded without it
	Publisher CommandPublisher // optional: commands fail with 503 without it
	Readings  ReadingStore     // optional: telemetry history fails with 503 without it
	QoS       byte
	Version   string
}

// Server is the HTTP API server for Luma Core.
//
// It manages the HTTP listener, routes, middleware, ticket store, and
// WebSocket hub. The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	registry  *device.Registry
	authority *access.Authority
	users     auth.UserRepository
	tokens    auth.TokenRepository
	audit     audit.Repository
	publisher CommandPublisher
	readings  ReadingStore
	qos       byte
	version   string

	server  *http.Server
	hub     *Hub
	tickets *ticketStore
	cancel  context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Authority == nil {
		return nil, fmt.Errorf("access authority is required")
	}
	if deps.Users == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("user and token repositories are required")
	}
	// Publisher is optional; reads and sharing still work without the bus.

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		registry:  deps.Registry,
		authority: deps.Authority,
		users:     deps.Users,
		tokens:    deps.Tokens,
		audit:     deps.Audit,
		publisher: deps.Publisher,
		readings:  deps.Readings,
		qos:       deps.QoS,
		version:   deps.Version,
		tickets:   newTicketStore(),
	}, nil
}

// Hub returns the WebSocket hub, creating it if Start has not run yet.
// Callers use it to wire status broadcasts from the telemetry ingestor.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, the ticket cleanup loop, and the HTTP
// listener in background goroutines. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	go s.hub.Run(srvCtx)

	// Periodic ticket cleanup prevents the store growing unbounded.
	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// recordAudit appends an event to the audit trail. Failures are logged,
// never surfaced: the action itself already succeeded.
func (s *Server) recordAudit(ctx context.Context, entry *audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("audit record failed", "action", entry.Action, "error", err)
	}
}

// publishCommand sends a command payload to a device's command topic.
func (s *Server) publishCommand(deviceID string, payload []byte) error {
	if s.publisher == nil {
		return fmt.Errorf("message bus not configured")
	}
	return s.publisher.Publish(mqtt.Topics{}.DeviceCommand(deviceID), payload, s.qos, false)
}
