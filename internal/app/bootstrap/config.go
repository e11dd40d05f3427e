// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSessionKeyLen is the shortest session_key accepted outside dev.
const minSessionKeyLen = 32

// devSessionKey is the default key. It is refused in prod.
const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for StudyHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STUDYHUB_MONGO_URI, STUDYHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "studyhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (at least 32 bytes in production)"},
	{Name: "session_name", Default: "studyhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for links in email"},

	// Mail
	{Name: "mail_transport", Default: "log", Desc: "Mail transport: 'smtp', 'ses' or 'log'"},
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@studyhub.local", Desc: "From email address"},
	{Name: "mail_ses_region", Default: "us-east-1", Desc: "AWS region for SES"},
	{Name: "mail_ses_access_key", Default: "", Desc: "SES access key (blank uses the default AWS credential chain)"},
	{Name: "mail_ses_secret_key", Default: "", Desc: "SES secret key"},

	{Name: "email_verify_expiry", Default: "10m", Desc: "Magic link expiry (e.g., 10m, 1h)"},
	{Name: "login_rate_limit", Default: 5, Desc: "Magic links per email per 15 minutes"},

	// Bible text
	{Name: "bible_api_url", Default: "https://bible-api.com", Desc: "Bible text API base URL"},
	{Name: "bible_translation", Default: "web", Desc: "Default translation id"},

	// Audit logging
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Health check deadline"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document deadline"},
	{Name: "timeout_medium", Default: "10s", Desc: "List query deadline"},
	{Name: "timeout_long", Default: "30s", Desc: "Transaction deadline"},

	// First church bootstrap
	{Name: "bootstrap_church_slug", Default: "", Desc: "Slug of a church to create on startup"},
	{Name: "bootstrap_church_name", Default: "", Desc: "Display name of the bootstrap church"},
	{Name: "bootstrap_owner_email", Default: "", Desc: "Email granted owner of the bootstrap church"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig reads .env files, config files,
// STUDYHUB_* environment variables and flags, with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STUDYHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),

		MailTransport:    strings.ToLower(strings.TrimSpace(appValues.String("mail_transport"))),
		MailSMTPHost:     appValues.String("mail_smtp_host"),
		MailSMTPPort:     appValues.Int("mail_smtp_port"),
		MailSMTPUser:     appValues.String("mail_smtp_user"),
		MailSMTPPass:     appValues.String("mail_smtp_pass"),
		MailFrom:         appValues.String("mail_from"),
		MailSESRegion:    appValues.String("mail_ses_region"),
		MailSESAccessKey: appValues.String("mail_ses_access_key"),
		MailSESSecretKey: appValues.String("mail_ses_secret_key"),

		EmailVerifyExpiry: appValues.Duration("email_verify_expiry", 10*time.Minute),
		LoginRateLimit:    appValues.Int("login_rate_limit"),

		BibleAPIURL:      appValues.String("bible_api_url"),
		BibleTranslation: appValues.String("bible_translation"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		TimeoutPing:   appValues.Duration("timeout_ping", 0),
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),

		BootstrapChurchSlug: strings.ToLower(strings.TrimSpace(appValues.String("bootstrap_church_slug"))),
		BootstrapChurchName: strings.TrimSpace(appValues.String("bootstrap_church_name")),
		BootstrapOwnerEmail: strings.TrimSpace(appValues.String("bootstrap_owner_email")),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that would fail later at runtime.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

// validateApp holds the checks that need no logger or network.
func validateApp(env string, appCfg AppConfig) error {
	if len(appCfg.SessionKey) < minSessionKeyLen {
		return fmt.Errorf("session_key must be at least %d bytes", minSessionKeyLen)
	}
	if env == "prod" && appCfg.SessionKey == devSessionKey {
		return fmt.Errorf("session_key must be changed from the development default in prod")
	}

	switch appCfg.MailTransport {
	case "", "log":
	case "smtp":
		if appCfg.MailSMTPHost == "" || appCfg.MailSMTPPort <= 0 {
			return fmt.Errorf("mail_transport smtp requires mail_smtp_host and mail_smtp_port")
		}
	case "ses":
		if appCfg.MailSESRegion == "" {
			return fmt.Errorf("mail_transport ses requires mail_ses_region")
		}
	default:
		return fmt.Errorf("unknown mail_transport %q (want smtp, ses or log)", appCfg.MailTransport)
	}
	if !inputval.IsValidEmail(appCfg.MailFrom) {
		return fmt.Errorf("mail_from %q is not a valid email address", appCfg.MailFrom)
	}

	for key, mode := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		switch mode {
		case auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
		default:
			return fmt.Errorf("%s must be all, db, log or off (got %q)", key, mode)
		}
	}

	if appCfg.BootstrapChurchSlug != "" {
		if !inputval.IsValidSlug(appCfg.BootstrapChurchSlug) {
			return fmt.Errorf("bootstrap_church_slug %q is not a valid slug", appCfg.BootstrapChurchSlug)
		}
		if !inputval.IsValidEmail(appCfg.BootstrapOwnerEmail) {
			return fmt.Errorf("bootstrap_church_slug requires a valid bootstrap_owner_email")
		}
	}
	return nil
}
