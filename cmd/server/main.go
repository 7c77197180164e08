package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/telemetry-platform/telemetry/internal/analysis"
	"github.com/telemetry-platform/telemetry/internal/api/middleware"
	"github.com/telemetry-platform/telemetry/internal/api/rest"
	"github.com/telemetry-platform/telemetry/internal/api/websocket"
	"github.com/telemetry-platform/telemetry/internal/auth"
	"github.com/telemetry-platform/telemetry/internal/config"
	"github.com/telemetry-platform/telemetry/internal/ingest"
	"github.com/telemetry-platform/telemetry/internal/pkg/audit"
	"github.com/telemetry-platform/telemetry/internal/store"
)

// drainGrace is how long the ingestion engine keeps flushing its buffer
// after shutdown begins, before reporting undelivered readings as dropped.
const drainGrace = 5 * time.Second

// retentionInterval is how often the retention job checks for rows older
// than cfg.RetentionDays.
const retentionInterval = 1 * time.Hour

func main() {
	log.Println("telemetry platform starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("configuration loaded: port=%d, driver=%s", cfg.Port, cfg.DatabaseDriver)

	log.Println("initializing store...")
	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close()
	log.Printf("store ready (%s)", cfg.DatabaseDriver)

	identity := loadIdentity()

	log.Println("starting ingestion engine...")
	engine := ingest.NewEngine(ingest.EngineConfig{
		Subscriber: ingest.SubscriberConfig{
			BrokerURL:     cfg.MQTTBrokerURL,
			ClientID:      cfg.MQTTClientID,
			Username:      cfg.MQTTUsername,
			Password:      cfg.MQTTPassword,
			Topics:        cfg.MQTTTopics,
			CleanSession:  cfg.MQTTCleanSession,
			AutoReconnect: cfg.MQTTAutoReconnect,
			KeepAlive:     time.Duration(cfg.MQTTKeepaliveSec) * time.Second,
		},
		BufferCap:   cfg.IngestBufferCapacity,
		BatchMax:    cfg.IngestBatchMax,
		BatchLinger: time.Duration(cfg.IngestBatchLingerMs) * time.Millisecond,
	}, st)

	analysisEngine := analysis.NewEngine(st, analysis.EngineConfig{
		Thresholds: analysis.Thresholds{
			ZThreshold: cfg.AnalysisZThreshold,
			TempWarn:   cfg.AnalysisTempWarn,
			TempCrit:   cfg.AnalysisTempCrit,
			VibWarn:    cfg.AnalysisVibWarn,
			VibCrit:    cfg.AnalysisVibCrit,
		},
		MinPoints: cfg.AnalysisMinPoints,
	})

	log.Println("starting WebSocket hub...")
	wsHub := websocket.NewHub(ctx)
	go wsHub.Run()
	engine.SetOnPersisted(wsHub.BroadcastReading)
	log.Println("WebSocket hub started")

	engineDone := make(chan int, 1)
	go func() {
		dropped, err := engine.Run(ctx, drainGrace)
		if err != nil {
			log.Printf("ingestion engine stopped: %v", err)
		}
		engineDone <- dropped
	}()

	go runRetentionJob(ctx, st, time.Duration(cfg.RetentionDays)*24*time.Hour)

	handler := rest.NewHandler(st, engine, analysisEngine, identity, cfg)

	router := mux.NewRouter()
	rest.SetupRoutes(router, handler)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	wsHandler := websocket.NewHandler(ctx, wsHub, cfg)
	router.HandleFunc("/ws/readings", wsHandler.ServeWS).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
	})

	router.Use(middleware.SecureHeaders)
	router.Use(middleware.RequestID)
	router.Use(middleware.StructuredLog)
	router.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))
	router.Use(middleware.RateLimit(120, 30))
	router.Use(middleware.Auth(cfg.AuthSecret))
	router.Use(recoveryMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handlerWithCORS := c.Handler(router)

	readTimeout := 15 * time.Second
	writeTimeout := 15 * time.Second
	if cfg.RequestTimeoutSec > 0 {
		readTimeout = time.Duration(cfg.RequestTimeoutSec) * time.Second
		writeTimeout = time.Duration(cfg.RequestTimeoutSec) * time.Second
	}
	shutdownTimeout := 30 * time.Second
	if cfg.ShutdownTimeoutSec > 0 {
		shutdownTimeout = time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	}

	listener, actualPort, err := bindPort(cfg.Port)
	if err != nil {
		log.Fatalf("failed to bind: %v", err)
	}
	defer listener.Close()

	srv := &http.Server{
		Handler:      handlerWithCORS,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on http://localhost:%d", actualPort)
		log.Printf("websocket feed at ws://localhost:%d/ws/readings", actualPort)
		log.Printf("metrics at http://localhost:%d/metrics", actualPort)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	cancel() // stops the ingestion engine's subscriber and begins its drain grace

	wsHub.Stop()

	select {
	case dropped := <-engineDone:
		if dropped > 0 {
			log.Printf("ingestion engine drained with %d readings dropped at shutdown", dropped)
		}
	case <-time.After(drainGrace + time.Second):
		log.Println("timed out waiting for ingestion engine to drain")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("server exited gracefully")
}

// openStore selects the backend by cfg.DatabaseDriver. The sqlite path
// applies its own schema internally; the postgres path assumes the
// TimescaleDB hypertable migrations have already been applied by a
// deployment-time collaborator (see migrations/).
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		return store.NewPostgresStore(cfg.DatabaseDSN)
	case "sqlite", "":
		return store.NewSQLiteStore(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown database_driver %q", cfg.DatabaseDriver)
	}
}

// loadIdentity builds the static operator identity map from environment
// variables. A single-operator deployment is all the auth boundary commits
// to (see auth.StaticIdentityProvider); if no operator is configured the
// platform still starts, but /auth/login always returns unknown user.
func loadIdentity() auth.StaticIdentityProvider {
	username := os.Getenv("TELEMETRY_OPERATOR_USERNAME")
	hash := os.Getenv("TELEMETRY_OPERATOR_PASSWORD_HASH")
	if username == "" || hash == "" {
		log.Println("warning: TELEMETRY_OPERATOR_USERNAME / TELEMETRY_OPERATOR_PASSWORD_HASH not set — no operator can log in")
		return auth.StaticIdentityProvider{}
	}
	return auth.StaticIdentityProvider{username: hash}
}

// runRetentionJob periodically drops readings older than retentionWindow.
// A non-positive window disables the job entirely.
func runRetentionJob(ctx context.Context, st store.Store, retentionWindow time.Duration) {
	if retentionWindow <= 0 {
		return
	}
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retentionWindow)
			dropped, err := st.DropBefore(ctx, cutoff)
			if err != nil {
				audit.LogRetentionDrop(cutoff, 0, "failure", err.Error())
				continue
			}
			audit.LogRetentionDrop(cutoff, dropped, "success", "")
		}
	}
}

// bindPort binds the first available port in [port, port+99], capped at
// 8199, so a previous instance still winding down doesn't prevent restart.
func bindPort(port int) (net.Listener, int, error) {
	maxPort := port + 99
	if maxPort > 8199 {
		maxPort = 8199
	}
	for p := port; p <= maxPort; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", p))
		if err != nil {
			var errno *syscall.Errno
			if errors.As(err, &errno) && *errno == syscall.EADDRINUSE {
				continue
			}
			return nil, 0, err
		}
		return l, p, nil
	}
	return nil, 0, fmt.Errorf("no port available in range %d..%d", port, maxPort)
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered: %v", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
