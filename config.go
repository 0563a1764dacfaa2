package orgsite

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/eringen/orgsite/backend"
)

// Backend kinds accepted by SiteConfig.Backend.
const (
	BackendLocal    = "local"
	BackendSupabase = "supabase"
)

// SiteConfig holds all configuration for an orgsite deployment.
type SiteConfig struct {
	Name        string // Site name (default "Our Organization")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags

	Addr string // Listen address (default ":3000")

	Backend        string        // "local" (default) or "supabase"
	DatabasePath   string        // local: SQLite path (default "data/site.db")
	StorageDir     string        // local: bucket root (default "data/storage")
	JWTSecret      string        // local: session signing key
	SupabaseURL    string        // supabase: project URL
	SupabaseKey    string        // supabase: anon key
	BackendTimeout time.Duration // supabase: per request (default 15s)

	SessionSecret string // Required: cookie signing secret
	CookieSecure  bool   // Set true for HTTPS

	CacheTTL         time.Duration // Public read cache TTL (default 5min)
	LoginMaxAttempts int           // per IP per LoginWindow (default 5)
	LoginWindow      time.Duration // default 1min

	SMTP SMTPConfig
	Log  LogConfig
}

// SMTPConfig configures recovery mail for the local backend. Mail is logged
// instead of sent when Host is empty.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level      string // debug, info, warn, error (default info)
	Path       string // rolling log file; console only when empty
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Our Organization"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/site.db"
	}
	if c.StorageDir == "" {
		c.StorageDir = "data/storage"
	}
	if c.BackendTimeout == 0 {
		c.BackendTimeout = 15 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.LoginMaxAttempts == 0 {
		c.LoginMaxAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

// validate reports the settings the chosen backend cannot run without.
func (c SiteConfig) validate() error {
	var missing []string
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	switch c.Backend {
	case BackendLocal:
		if c.JWTSecret == "" {
			missing = append(missing, "JWT_SECRET")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.SupabaseKey == "" {
			missing = append(missing, "SUPABASE_ANON_KEY")
		}
	default:
		return fmt.Errorf("orgsite: unknown backend %q", c.Backend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("orgsite: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LoadConfig reads the configuration from the environment after loading an
// optional .env file from the working directory.
func LoadConfig() (SiteConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return SiteConfig{}, fmt.Errorf("orgsite: load .env: %w", err)
	}
	cfg := SiteConfig{
		Name:             os.Getenv("SITE_NAME"),
		URL:              os.Getenv("SITE_URL"),
		Description:      os.Getenv("SITE_DESCRIPTION"),
		Addr:             os.Getenv("ADDR"),
		Backend:          strings.ToLower(os.Getenv("BACKEND")),
		DatabasePath:     os.Getenv("DATABASE_PATH"),
		StorageDir:       os.Getenv("STORAGE_DIR"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		SupabaseURL:      os.Getenv("SUPABASE_URL"),
		SupabaseKey:      os.Getenv("SUPABASE_ANON_KEY"),
		BackendTimeout:   envDuration("BACKEND_TIMEOUT", 0),
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		CookieSecure:     envBool("COOKIE_SECURE", false),
		CacheTTL:         envDuration("CACHE_TTL", 0),
		LoginMaxAttempts: envInt("LOGIN_MAX_ATTEMPTS", 0),
		LoginWindow:      envDuration("LOGIN_WINDOW", 0),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 0),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			FromName: os.Getenv("SMTP_FROM_NAME"),
			UseTLS:   envBool("SMTP_USE_TLS", true),
		},
		Log: LogConfig{
			Level:      EnvOr("LOG_LEVEL", "info"),
			Path:       os.Getenv("LOG_PATH"),
			MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 0),
			MaxBackups: envInt("LOG_MAX_BACKUPS", 0),
			MaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 0),
			Compress:   envBool("LOG_COMPRESS", false),
		},
	}
	cfg.setDefaults()
	return cfg, cfg.validate()
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets a directory of extra static assets served under /public.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the logger built from SiteConfig.Log.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithClock overrides time.Now for every date decision the site makes.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithBackend uses be instead of opening the configured backend.
func WithBackend(be backend.Backend) Option {
	return func(a *App) {
		a.backend = be
	}
}
