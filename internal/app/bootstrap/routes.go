// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"

	accessrequestsfeature "github.com/dalemusser/studyhub/internal/app/features/accessrequests"
	auditlogfeature "github.com/dalemusser/studyhub/internal/app/features/auditlog"
	churchfeature "github.com/dalemusser/studyhub/internal/app/features/church"
	courseadminfeature "github.com/dalemusser/studyhub/internal/app/features/courseadmin"
	errorsfeature "github.com/dalemusser/studyhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/studyhub/internal/app/features/health"
	homefeature "github.com/dalemusser/studyhub/internal/app/features/home"
	loginfeature "github.com/dalemusser/studyhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/studyhub/internal/app/features/logout"
	membersfeature "github.com/dalemusser/studyhub/internal/app/features/members"
	passagesfeature "github.com/dalemusser/studyhub/internal/app/features/passages"
	profilefeature "github.com/dalemusser/studyhub/internal/app/features/profile"
	studiesfeature "github.com/dalemusser/studyhub/internal/app/features/studies"
	"github.com/dalemusser/studyhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/studyhub/internal/app/store/workspaces"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/bibletext"
	"github.com/dalemusser/studyhub/internal/app/system/mailer"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// BuildHandler constructs the root router.
//
// Top-level paths serve sign-in, the personal study space and operational
// endpoints. Everything under /{churchslug} runs behind the tenant resolver,
// so handlers there always find a church workspace in the request context.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	secure := coreCfg.Env == "prod"

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Fresh user data on every request, so disabled accounts sign out at once.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	// Dev mode reloads templates from disk.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	mailCtx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	mail, err := mailer.New(mailCtx, mailer.Config{
		Transport:    appCfg.MailTransport,
		From:         appCfg.MailFrom,
		SMTPHost:     appCfg.MailSMTPHost,
		SMTPPort:     appCfg.MailSMTPPort,
		SMTPUser:     appCfg.MailSMTPUser,
		SMTPPass:     appCfg.MailSMTPPass,
		SESRegion:    appCfg.MailSESRegion,
		SESAccessKey: appCfg.MailSESAccessKey,
		SESSecretKey: appCfg.MailSESSecretKey,
	}, logger)
	cancel()
	if err != nil {
		logger.Error("mailer init failed", zap.Error(err))
		return nil, err
	}

	m := metrics.New()
	audits := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	errLog := errorsfeature.NewErrorLogger(logger)
	az := authz.New(membershipstore.New(db))
	resolver := workspace.NewResolver(workspacestore.New(db))
	bible := bibletext.New(appCfg.BibleAPIURL, appCfg.BibleTranslation, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(csrfMiddleware(appCfg.SessionKey, secure))

	// Global auth middleware: loads the SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Operational endpoints
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, logger)))
	r.Handle("/metrics", m.Handler())
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, mail, audits, m,
		appCfg.BaseURL, appCfg.EmailVerifyExpiry, appCfg.LoginRateLimit, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.Mount("/logout", logoutfeature.Routes(logoutfeature.NewHandler(sessionMgr, audits, logger)))

	r.Mount("/", homefeature.Routes(homefeature.NewHandler(db, errLog, logger)))
	r.Mount("/profile", profilefeature.Routes(profilefeature.NewHandler(db, errLog, logger), sessionMgr))

	// Personal study space
	studiesHandler := studiesfeature.NewHandler(db, az, errLog, m, logger)
	r.With(workspace.PersonalMiddleware(personalWorkspace(workspacestore.New(db)), errLog.WorkspaceFail)).
		Mount("/studies", studiesfeature.Routes(studiesHandler))

	r.Mount("/passages", passagesfeature.Routes(passagesfeature.NewHandler(bible, m, logger), sessionMgr))

	// Church tenants
	churchHandler := churchfeature.NewHandler(deps.MongoClient, db, az, errLog, m, logger)
	courseAdmin := courseadminfeature.NewHandler(db, az, errLog, audits, logger)
	requests := accessrequestsfeature.NewHandler(deps.MongoClient, db, az, errLog, audits, m, logger)
	members := membersfeature.NewHandler(db, az, errLog, audits, logger)
	auditTrail := auditlogfeature.NewHandler(db, az, errLog, logger)

	r.Route("/{churchslug}", func(cr chi.Router) {
		cr.Use(resolver.Middleware("churchslug", errLog.WorkspaceFail, logger))

		cr.Mount("/studies", studiesfeature.Routes(studiesHandler))
		cr.Mount("/request-access", accessrequestsfeature.RequestRoutes(requests))
		cr.Mount("/manage/courses", courseadminfeature.Routes(courseAdmin))
		cr.Mount("/manage/requests", accessrequestsfeature.ManageRoutes(requests))
		cr.Mount("/manage/members", membersfeature.Routes(members))
		cr.Mount("/manage/audit", auditlogfeature.Routes(auditTrail))
		cr.Mount("/", churchfeature.Routes(churchHandler))
	})

	logger.Info("routes built",
		zap.String("mail_transport", appCfg.MailTransport),
		zap.Bool("secure_cookies", secure))
	return r, nil
}

// personalStore is the part of workspacestore the personal middleware needs.
type personalStore interface {
	Personal(ctx context.Context, userID primitive.ObjectID) (models.Workspace, error)
}

// personalWorkspace adapts a store to workspace.PersonalFunc.
func personalWorkspace(store personalStore) workspace.PersonalFunc {
	return func(ctx context.Context, caller *auth.SessionUser) (*models.Workspace, error) {
		uid, err := primitive.ObjectIDFromHex(caller.ID)
		if err != nil {
			return nil, fmt.Errorf("session user id %q: %w", caller.ID, err)
		}
		ws, err := store.Personal(ctx, uid)
		if err != nil {
			return nil, err
		}
		return &ws, nil
	}
}

// csrfMiddleware protects every unsafe method. The token key is derived from
// the session key so one secret rotates both.
func csrfMiddleware(sessionKey string, secure bool) func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte("csrf:" + sessionKey))
	protect := csrf.Protect(key[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			errorsfeature.RenderForbidden(w, r, "Your form expired. Go back, reload the page and try again.", "/")
		})),
	)
	if secure {
		return protect
	}
	// Plain-HTTP dev servers have no TLS for the referer check to rely on.
	return func(next http.Handler) http.Handler {
		h := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
