package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Auth      AuthConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

// StorageConfig selects the persistence substrate and the journal behavior
// layered on top of it.
type StorageConfig struct {
	// Backend is one of "memory", "file" or "couchdb".
	Backend string
	// JournalKey is the fixed blob key the whole serialized journal lives
	// under.
	JournalKey string
	// FileDir is the directory used by the file backend.
	FileDir string

	CouchHost     string
	CouchPort     string
	CouchUser     string
	CouchPassword string
	CouchDB       string

	// ConflictPolicy names the policy applied to concurrent writes:
	// "lww" (default), "fww" or "reject".
	ConflictPolicy string
	// Compaction enables latest-per-key compaction of incoming remote
	// batches before merge.
	Compaction bool
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// AccessKeyHash is the bcrypt hash of the shared peer access key.
	AccessKeyHash string
}

type WebSocketConfig struct {
	ReadBufferSize   int
	WriteBufferSize  int
	MaxMessageSize   int64
	WriteWait        time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	MaxConnPerRemote int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

func Load() (*Config, error) {
	godotenv.Load()

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	backend := getEnv("STORAGE_BACKEND", "file")
	switch backend {
	case "memory", "file", "couchdb":
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %s", backend)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Storage: StorageConfig{
			Backend:        backend,
			JournalKey:     getEnv("JOURNAL_KEY", "session-journal"),
			FileDir:        getEnv("STORAGE_FILE_DIR", "./data"),
			CouchHost:      getEnv("COUCH_HOST", "localhost"),
			CouchPort:      getEnv("COUCH_PORT", "5984"),
			CouchUser:      getEnv("COUCH_USER", "admin"),
			CouchPassword:  getEnv("COUCH_PASSWORD", "password"),
			CouchDB:        getEnv("COUCH_DB", "sessionlog"),
			ConflictPolicy: getEnv("CONFLICT_POLICY", "lww"),
			Compaction:     getEnvAsBool("COMPACTION_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			TokenTTL:      tokenTTL,
			AccessKeyHash: getEnv("PEER_ACCESS_KEY_HASH", ""),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:   getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize:  getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:   int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 10485760)),
			WriteWait:        10 * time.Second,
			PongWait:         60 * time.Second,
			PingPeriod:       54 * time.Second,
			MaxConnPerRemote: getEnvAsInt("WS_MAX_CONN_PER_REMOTE", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
