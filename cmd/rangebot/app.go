package main

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/radio-control/rangebot/internal/api"
	"github.com/radio-control/rangebot/internal/audit"
	"github.com/radio-control/rangebot/internal/auth"
	"github.com/radio-control/rangebot/internal/config"
	"github.com/radio-control/rangebot/internal/metrics"
	"github.com/radio-control/rangebot/internal/radiolink"
	"github.com/radio-control/rangebot/internal/radiolink/sim"
	"github.com/radio-control/rangebot/internal/responder"
	"github.com/radio-control/rangebot/internal/telemetry"
)

// app holds the running components.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	target    radiolink.Target
	link      radiolink.Link
	registry  *prometheus.Registry
	metrics   *metrics.Collector
	hub       *telemetry.Hub
	audit     *audit.Logger
	responder *responder.Responder
	server    *api.Server

	unsubscribe func()
	// apiAddr is the bound API address once start succeeds.
	apiAddr string
}

// opener is implemented by links that report OnConnected only after an
// explicit open, such as the simulator.
type opener interface {
	Open() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		target:    cfg.Target(),
		registry:  prometheus.NewRegistry(),
	}

	// Metrics
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewCollector(a.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.metrics = collector
	logger.Println("Metrics initialized")

	// Audit logger
	recorders := []responder.Recorder{a.metrics}
	if cfg.Audit.Enabled {
		a.audit, err = audit.NewLogger(cfg.Audit.Dir, audit.Options{
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
		}
		recorders = append(recorders, a.audit)
		logger.Printf("Audit logger writing to %s", a.audit.GetFilePath())
	}

	// Radio link
	sim.Register(sim.Config{LocalID: cfg.Sim.LocalID, Nodes: cfg.Sim.Nodes})
	a.link, err = radiolink.Dial(ctx, a.target)
	if err != nil {
		a.closeAudit()
		return nil, fmt.Errorf("failed to connect to %s: %w", a.target, err)
	}
	logger.Printf("Radio link dialed: %s", a.target)

	// Telemetry hub
	a.hub = telemetry.NewHub(telemetry.Config{
		BufferSize:        cfg.Telemetry.BufferSize,
		HeartbeatInterval: cfg.Telemetry.HeartbeatInterval,
	}, a.snapshot)
	recorders = append(recorders, a.hub)
	logger.Println("Telemetry hub initialized")

	// Responder
	a.responder = responder.New(a.link, responder.Config{
		Commands:        cfg.Responder.Commands,
		GreetingEnabled: cfg.Responder.Greeting.Enabled,
		GreetingText:    cfg.Responder.Greeting.Text,
		SendTimeout:     cfg.Responder.SendTimeout,
	}, logger, recorders...)
	a.unsubscribe = a.responder.Register(a.link)
	logger.Println("Responder registered")

	// API server
	if cfg.HTTP.Enabled {
		opts := api.Options{
			Link:         a.link,
			Ranges:       a.responder,
			Telemetry:    a.hub,
			Metrics:      a.metrics.Handler(),
			Target:       a.target.String(),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		}
		if cfg.Auth.Algorithm != "" {
			verifier, err := auth.NewVerifier(auth.VerifierConfig{
				Algorithm:    cfg.Auth.Algorithm,
				SecretKey:    cfg.Auth.SecretKey,
				PublicKeyPEM: cfg.Auth.PublicKeyPEM,
			})
			if err != nil {
				a.shutdown(ctx)
				return nil, fmt.Errorf("failed to initialize auth: %w", err)
			}
			opts.AuthMiddleware = auth.NewMiddleware(verifier)
		}
		a.server = api.NewServer(opts)
		logger.Println("API server created")
	}

	return a, nil
}

// start binds the API listener, if enabled, and opens the link. A bind
// failure is returned before the link is opened. Serve errors after that are
// logged and leave the responder running.
func (a *app) start() error {
	if a.server != nil {
		ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", a.cfg.HTTP.Addr, err)
		}
		a.apiAddr = ln.Addr().String()
		go func() {
			if err := a.server.Serve(ln); err != nil {
				a.logger.Printf("Server error: %v", err)
			}
		}()
		a.logger.Printf("Health endpoint: http://%s/api/v1/health", a.apiAddr)
	}

	if o, ok := a.link.(opener); ok {
		if err := o.Open(); err != nil {
			a.logger.Printf("Failed to open link: %v", err)
		}
	}
	return nil
}

// shutdown unregisters the responder and stops every component. It is safe
// to call on a partially constructed app.
func (a *app) shutdown(ctx context.Context) {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if a.server != nil {
		if err := a.server.Stop(ctx); err != nil {
			a.logger.Printf("Error stopping HTTP server: %v", err)
		}
	}
	if a.hub != nil {
		a.hub.Stop()
	}
	if a.link != nil {
		if err := a.link.Close(); err != nil {
			a.logger.Printf("Error closing link: %v", err)
		}
	}
	a.closeAudit()
	a.logger.Println("RangeBot shutdown complete")
}

func (a *app) closeAudit() {
	if a.audit == nil {
		return
	}
	if err := a.audit.Close(); err != nil {
		a.logger.Printf("Error closing audit logger: %v", err)
	}
	a.audit = nil
}

// snapshot is the payload of the telemetry ready event.
func (a *app) snapshot() map[string]interface{} {
	return map[string]interface{}{
		"localId": a.link.LocalID(),
		"link":    a.target.String(),
		"nodes":   len(a.link.Nodes()),
	}
}
