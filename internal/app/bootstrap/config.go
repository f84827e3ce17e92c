// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"github.com/dalemusser/schoolhub/internal/app/system/passwords"
	"github.com/dalemusser/schoolhub/internal/app/system/ratelimit"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// devTokenSecret is the built-in secret; it is refused in production.
const devTokenSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for SchoolHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, token_secret, etc.
//   - Environment variables: SCHOOLHUB_MONGO_URI, SCHOOLHUB_TOKEN_SECRET, etc.
//   - Command-line flags: --mongo_uri, --token_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "schoolhub", Desc: "Platform database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Session tokens
	{Name: "token_secret", Default: devTokenSecret, Desc: "HMAC secret for session tokens (must be strong in production)"},
	{Name: "token_issuer", Default: "schoolhub", Desc: "Issuer claim of session tokens"},
	{Name: "token_expiry", Default: "72h", Desc: "Session token lifetime (e.g., 72h, 30m)"},

	// CORS
	{Name: "allowed_origins", Default: "", Desc: "Comma-separated browser origins allowed to call the API"},

	// Tenancy
	{Name: "tenant_db_prefix", Default: "school_", Desc: "Database name prefix for new schools"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the super admin created on startup"},
	{Name: "superadmin_password", Default: "", Desc: "Initial password of the super admin created on startup"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Login throttling
	{Name: "login_ip_limit", Default: ratelimit.DefaultLoginConfig.IPLimit, Desc: "Login attempts allowed per client IP per window"},
	{Name: "login_ip_window", Default: "1m", Desc: "Window for the per-IP login limit"},
	{Name: "login_email_limit", Default: ratelimit.DefaultLoginConfig.EmailLimit, Desc: "Login attempts allowed per e-mail per window"},
	{Name: "login_email_window", Default: "5m", Desc: "Window for the per-e-mail login limit"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Timeout for database pings"},
	{Name: "timeout_lookup", Default: "5s", Desc: "Timeout for tenant directory lookups"},
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for multi-step operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for provisioning and schema work"},

	{Name: "watch_interval", Default: "10s", Desc: "How often the connection watcher pings MongoDB"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config.yaml/json/toml
// files, environment variables (WAFFLE_* for core, SCHOOLHUB_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SCHOOLHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		TokenSecret: appValues.String("token_secret"),
		TokenIssuer: appValues.String("token_issuer"),
		TokenExpiry: appValues.Duration("token_expiry", 72*time.Hour),

		AllowedOrigins: splitList(appValues.String("allowed_origins")),
		TenantDBPrefix: appValues.String("tenant_db_prefix"),

		SuperAdminEmail:    appValues.String("superadmin_email"),
		SuperAdminPassword: appValues.String("superadmin_password"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		LoginIPLimit:     appValues.Int("login_ip_limit"),
		LoginIPWindow:    appValues.Duration("login_ip_window", ratelimit.DefaultLoginConfig.IPPeriod),
		LoginEmailLimit:  appValues.Int("login_email_limit"),
		LoginEmailWindow: appValues.Duration("login_email_window", ratelimit.DefaultLoginConfig.EmailPeriod),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutLookup: appValues.Duration("timeout_lookup", timeouts.DefaultLookup),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),

		WatchInterval: appValues.Duration("watch_interval", 10*time.Second),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var dbNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here to catch configuration errors early,
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if !dbNameRe.MatchString(appCfg.MongoDatabase) {
		return fmt.Errorf("mongo_database %q is not a valid database name", appCfg.MongoDatabase)
	}
	if appCfg.TenantDBPrefix == "" || !dbNameRe.MatchString(appCfg.TenantDBPrefix) {
		return fmt.Errorf("tenant_db_prefix %q must be letters, digits, '_' or '-'", appCfg.TenantDBPrefix)
	}

	if len(appCfg.TokenSecret) < 32 {
		return errors.New("token_secret must be at least 32 characters")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.TokenSecret == devTokenSecret {
		return errors.New("token_secret must be changed from the development default in production")
	}
	if appCfg.TokenExpiry <= 0 {
		return errors.New("token_expiry must be positive")
	}

	for key, v := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		switch v {
		case auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, v)
		}
	}

	if appCfg.LoginIPLimit <= 0 || appCfg.LoginEmailLimit <= 0 {
		return errors.New("login_ip_limit and login_email_limit must be positive")
	}

	if (appCfg.SuperAdminEmail == "") != (appCfg.SuperAdminPassword == "") {
		return errors.New("superadmin_email and superadmin_password must be set together")
	}
	if appCfg.SuperAdminPassword != "" && len(appCfg.SuperAdminPassword) < passwords.MinLength {
		return errors.New("superadmin_password must be at least 8 characters")
	}
	if len(appCfg.SuperAdminPassword) > passwords.MaxLength {
		return errors.New("superadmin_password must be at most 72 bytes")
	}

	if appCfg.WatchInterval <= 0 {
		return errors.New("watch_interval must be positive")
	}
	return nil
}
