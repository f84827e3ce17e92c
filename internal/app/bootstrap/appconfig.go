// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (SCHOOLHUB_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers the framework-level settings: ports, TLS, log level, body limits.
type AppConfig struct {
	// MongoDB connection configuration. MongoDatabase is the platform
	// database; each school has its own database next to it.
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session tokens
	TokenSecret string
	TokenIssuer string
	TokenExpiry time.Duration

	// Browser origins allowed to call the API. Empty allows none.
	AllowedOrigins []string

	// Prefix for the database name of newly provisioned schools.
	TenantDBPrefix string

	// Super admin seeded on startup when no active account uses the e-mail.
	SuperAdminEmail    string
	SuperAdminPassword string

	// Audit logging destinations: all, db, log or off.
	AuditLogAuth  string
	AuditLogAdmin string

	// Login throttling
	LoginIPLimit     int
	LoginIPWindow    time.Duration
	LoginEmailLimit  int
	LoginEmailWindow time.Duration

	// Database operation timeouts
	TimeoutPing   time.Duration
	TimeoutLookup time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// How often the connection watcher pings the primary.
	WatchInterval time.Duration
}
