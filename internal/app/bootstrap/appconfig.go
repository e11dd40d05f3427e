// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds StudyHub's app-level configuration, loaded in LoadConfig.
//
// WAFFLE's CoreConfig covers the framework settings (ports, TLS, log level,
// env). Everything specific to StudyHub lives here and is passed to every
// lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // e.g. mongodb://localhost:27017
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie
	SessionKey    string // signing key, at least 32 bytes
	SessionName   string
	SessionDomain string // blank means current host
	SessionMaxAge time.Duration

	// Base URL for magic links in email
	BaseURL string

	// Mail transport: smtp, ses or log
	MailTransport    string
	MailSMTPHost     string
	MailSMTPPort     int
	MailSMTPUser     string
	MailSMTPPass     string
	MailFrom         string
	MailSESRegion    string
	MailSESAccessKey string // blank uses the default AWS credential chain
	MailSESSecretKey string

	EmailVerifyExpiry time.Duration
	LoginRateLimit    int // magic-link sends per email per window

	// Bible text lookup
	BibleAPIURL      string
	BibleTranslation string

	// Audit logging modes: all, db, log or off
	AuditLogAuth  string
	AuditLogAdmin string

	// Context deadlines; zero keeps the built-in default.
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Optional first church, created with an owner on startup.
	BootstrapChurchSlug string
	BootstrapChurchName string
	BootstrapOwnerEmail string
}
