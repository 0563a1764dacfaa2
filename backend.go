package orgsite

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eringen/orgsite/backend"
	"github.com/eringen/orgsite/backend/local"
	"github.com/eringen/orgsite/backend/supabase"
)

// OpenBackend connects to the backend named by cfg.Backend. The returned
// close func releases its resources and is never nil.
func OpenBackend(cfg SiteConfig, logger *zap.Logger) (backend.Backend, func() error, error) {
	switch cfg.Backend {
	case BackendSupabase:
		c, err := supabase.New(supabase.Config{
			URL:     cfg.SupabaseURL,
			AnonKey: cfg.SupabaseKey,
			Timeout: cfg.BackendTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	case BackendLocal:
		lcfg := local.Config{
			DatabasePath: cfg.DatabasePath,
			StorageDir:   cfg.StorageDir,
			JWTSecret:    cfg.JWTSecret,
			Logger:       logger.Named("local"),
		}
		if cfg.SMTP.Host != "" {
			lcfg.Mailer = local.SMTPMailer{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
				FromName: cfg.SMTP.FromName,
				UseTLS:   cfg.SMTP.UseTLS,
			}
		}
		b, err := local.Open(lcfg)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}
	return nil, nil, fmt.Errorf("orgsite: unknown backend %q", cfg.Backend)
}
