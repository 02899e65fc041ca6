package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessionlog-sync-server/internal/audit"
	"sessionlog-sync-server/internal/config"
	"sessionlog-sync-server/internal/handler"
	"sessionlog-sync-server/internal/journal"
	"sessionlog-sync-server/internal/middleware"
	"sessionlog-sync-server/internal/policy"
	"sessionlog-sync-server/internal/repository"
	"sessionlog-sync-server/internal/service"
	"sessionlog-sync-server/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}

	jrnl, err := journal.New(store, cfg.Storage.JournalKey, policy.ByName(cfg.Storage.ConflictPolicy), audit.LogSink{})
	if err != nil {
		log.Fatalf("Failed to load journal: %v", err)
	}
	log.Printf("Journal loaded: %d entries (backend: %s, policy: %s)",
		len(jrnl.Entries()), cfg.Storage.Backend, cfg.Storage.ConflictPolicy)

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnPerRemote,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	go wsManager.Run()

	var compactor journal.Compactor
	if cfg.Storage.Compaction {
		compactor = journal.LatestPerKey{}
	}

	replicationService := service.NewReplicationService(jrnl, wsManager, compactor)
	wsManager.SetMessageHandler(replicationService)
	go replicationService.Run()

	authService := service.NewAuthService(cfg.Auth.AccessKeyHash, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	authHandler := handler.NewAuthHandler(authService)
	journalHandler := handler.NewJournalHandler(jrnl, replicationService)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.Auth.JWTSecret)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/token", authHandler.Token).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))

	protected.HandleFunc("/journal/entries", journalHandler.Write).Methods("POST", "OPTIONS")
	protected.HandleFunc("/journal/entries", journalHandler.Entries).Methods("GET", "OPTIONS")
	protected.HandleFunc("/journal", journalHandler.Destroy).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/remotes/{id}/sequence", journalHandler.RemoteSequence).Methods("GET", "OPTIONS")
	protected.HandleFunc("/remotes/{id}/pending", journalHandler.RemotePending).Methods("GET", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting Sessionlog Sync Server on %s (env: %s)", addr, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	replicationService.Close()

	log.Println("Server stopped gracefully")
}

func buildStore(cfg *config.Config) (repository.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return repository.NewMemoryStore(), nil

	case "file":
		return repository.NewFileStore(cfg.Storage.FileDir)

	case "couchdb":
		couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
			cfg.Storage.CouchUser,
			cfg.Storage.CouchPassword,
			cfg.Storage.CouchHost,
			cfg.Storage.CouchPort,
		)

		client, err := kivik.New("couch", couchURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
		}

		exists, err := client.DBExists(context.Background(), cfg.Storage.CouchDB)
		if err != nil {
			return nil, fmt.Errorf("failed to check database existence: %w", err)
		}
		if !exists {
			if err := client.CreateDB(context.Background(), cfg.Storage.CouchDB); err != nil {
				return nil, fmt.Errorf("failed to create database: %w", err)
			}
			log.Printf("Created database: %s", cfg.Storage.CouchDB)
		}

		return repository.NewCouchStore(client, cfg.Storage.CouchDB), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"sessionlog-sync-server"}`))
}
