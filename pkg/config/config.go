package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageSupabase = "supabase"
	StorageGridFS   = "gridfs"
)

// Identity providers
const (
	IdentitySupabase = "supabase"
	IdentityFirebase = "firebase"
)

type Config struct {
	Port string
	Env  string

	// Supabase project
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string
	FunctionsURL           string

	// Object storage
	StorageBackend string
	StorageBucket  string
	PublicBaseURL  string

	// Self-hosted databases
	PostgresConnStr string
	MongoURI        string
	MongoDatabase   string

	// Identity
	IdentityProvider        string
	FirebaseCredentialsPath string

	// CLI session
	AccessToken string
}

// Load reads configuration from the environment, loading a .env file first when present
func Load() *Config {
	_ = godotenv.Load()

	supabaseURL := strings.TrimRight(getEnv("SUPABASE_URL", ""), "/")
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		SupabaseURL:             supabaseURL,
		SupabaseAnonKey:         getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceRoleKey:  getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:       getEnv("SUPABASE_JWT_SECRET", ""),
		FunctionsURL:            strings.TrimRight(getEnv("FUNCTIONS_URL", supabaseURL+"/functions/v1"), "/"),
		StorageBackend:          getEnv("STORAGE_BACKEND", StorageSupabase),
		StorageBucket:           getEnv("STORAGE_BUCKET", "memory-images"),
		PublicBaseURL:           strings.TrimRight(getEnv("PUBLIC_BASE_URL", supabaseURL), "/"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "memorylane"),
		IdentityProvider:        getEnv("IDENTITY_PROVIDER", IdentitySupabase),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		AccessToken:             getEnv("TIMELINE_ACCESS_TOKEN", ""),
	}
}

// ValidateServer checks the values cmd/server needs
func (c *Config) ValidateServer() error {
	if c.PostgresConnStr == "" {
		return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
	}
	switch c.StorageBackend {
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase storage backend")
		}
	case StorageGridFS:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI environment variable not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.IdentityProvider {
	case IdentitySupabase:
		if c.SupabaseJWTSecret == "" && (c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "") {
			return fmt.Errorf("SUPABASE_JWT_SECRET, or SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY, must be set")
		}
	case IdentityFirebase:
		if c.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH environment variable not set")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider)
	}
	return nil
}

// ValidateClient checks the values cmd/timeline needs
func (c *Config) ValidateClient() error {
	if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY must be set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
