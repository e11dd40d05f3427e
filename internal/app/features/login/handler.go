// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/store/emailverify"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/mailer"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RateWindow is the window for the per-IP and per-email send limits.
const RateWindow = 15 * time.Minute

// Sign-in methods and outcomes used as metric labels.
const (
	methodLink = "link"
	methodCode = "code"
)

type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	SessionMgr  *auth.SessionManager
	ErrLog      *uierrors.ErrorLogger
	Mailer      *mailer.Mailer
	EmailVerify *emailverify.Store
	Users       *userstore.Store
	AuditLog    *auditlog.Logger
	Metrics     *metrics.Metrics
	BaseURL     string // prefix for magic links, e.g. "https://studyhub.example"

	// ByIP and ByEmail throttle magic-link sends.
	ByIP    *ratelimit.Limiter
	ByEmail *ratelimit.Limiter
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	mail *mailer.Mailer,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	baseURL string,
	emailVerifyExpiry time.Duration,
	rateLimit int,
	logger *zap.Logger,
) *Handler {
	if rateLimit <= 0 {
		rateLimit = 5
	}
	return &Handler{
		DB:          db,
		Log:         logger,
		SessionMgr:  sessionMgr,
		ErrLog:      errLog,
		Mailer:      mail,
		EmailVerify: emailverify.New(db, emailVerifyExpiry),
		Users:       userstore.New(db),
		AuditLog:    audit,
		Metrics:     m,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		// One address shares an IP with its household or congregation.
		ByIP:    ratelimit.New(rateLimit*4, RateWindow),
		ByEmail: ratelimit.New(rateLimit, RateWindow),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error    string
	Email    string
	FullName string
	Next     string
}

type sentData struct {
	viewdata.BaseVM
	Error     string
	Email     string
	Next      string
	ExpiresIn string
}

// formatExpiryDuration formats a time.Duration as "15 minutes" or "1 hour".
func formatExpiryDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

// safeNext keeps next only when it is a local path.
func safeNext(next string) string {
	return urlutil.SafeReturn(next, "", "/")
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, safeNext(query.Get(r, "next")), http.StatusSeeOther)
		return
	}
	templates.Render(w, r, "login", loginFormData{
		BaseVM: viewdata.NewBaseVM(r, "Sign in", "/"),
		Next:   safeNext(query.Get(r, "next")),
	})
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, status int, msg, email, fullName, next string) {
	w.WriteHeader(status)
	templates.Render(w, r, "login", loginFormData{
		BaseVM:   viewdata.NewBaseVM(r, "Sign in", "/"),
		Error:    msg,
		Email:    email,
		FullName: fullName,
		Next:     next,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleLoginPost creates the user on first sign-in and mails a magic link.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := userstore.NormalizeEmail(r.FormValue("email"))
	fullName := strings.TrimSpace(r.FormValue("full_name"))
	next := safeNext(r.FormValue("next"))

	if !inputval.IsValidEmail(email) {
		h.renderFormWithError(w, r, http.StatusBadRequest, "Please enter a valid email address.", email, fullName, next)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.ByIP.Allow(ratelimit.ClientIP(r)) {
		h.Metrics.IncRateLimitRejection("ip")
		h.AuditLog.LoginRateLimited(ctx, r, email)
		h.renderFormWithError(w, r, http.StatusTooManyRequests, "Too many sign-in requests. Please wait a few minutes and try again.", email, fullName, next)
		return
	}
	if !h.ByEmail.Allow(email) {
		h.Metrics.IncRateLimitRejection("email")
		h.AuditLog.LoginRateLimited(ctx, r, email)
		h.renderFormWithError(w, r, http.StatusTooManyRequests, "Too many sign-in requests. Please wait a few minutes and try again.", email, fullName, next)
		return
	}

	u, created, err := h.Users.FindOrCreateByEmail(ctx, email, fullName)
	if errors.Is(err, userstore.ErrDisabled) {
		h.Log.Info("sign-in attempt for disabled user", zap.String("email", email))
		h.renderFormWithError(w, r, http.StatusForbidden, "This account is disabled.", email, fullName, next)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find or create user failed", err, "Unable to sign you in right now.", "/login")
		return
	}
	if created {
		h.Log.Info("user created at first sign-in", zap.String("user_id", u.ID.Hex()))
	}

	result, err := h.EmailVerify.Create(ctx, u.ID, email, next)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create email verification failed", err, "Unable to send a sign-in link right now.", "/login")
		return
	}

	msg := mailer.BuildMagicLinkEmail(email, mailer.MagicLinkData{
		SiteName:  viewdata.SiteName(),
		Code:      result.Code,
		MagicLink: h.BaseURL + "/login/verify?token=" + result.Token,
		ExpiresIn: formatExpiryDuration(h.EmailVerify.Expiry()),
	})
	if err := h.Mailer.Send(ctx, msg); err != nil {
		h.Log.Error("failed to send sign-in email", zap.Error(err), zap.String("email", email))
		h.renderFormWithError(w, r, http.StatusBadGateway, "We could not send the email. Please try again.", email, fullName, next)
		return
	}

	h.Metrics.IncMagicLinkSent()
	h.AuditLog.MagicLinkSent(ctx, r, u.ID, email)

	templates.Render(w, r, "login_sent", sentData{
		BaseVM:    viewdata.NewBaseVM(r, "Check your email", "/login"),
		Email:     email,
		Next:      next,
		ExpiresIn: formatExpiryDuration(h.EmailVerify.Expiry()),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login/verify?token=                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeVerify consumes a magic link. Each token signs in at most once.
func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.EmailVerify.VerifyToken(ctx, query.Get(r, "token"))
	if errors.Is(err, emailverify.ErrNotFound) {
		h.Metrics.IncSignIn(methodLink, "invalid")
		h.AuditLog.MagicLinkInvalid(ctx, r, "unknown, used or expired token")
		w.WriteHeader(http.StatusBadRequest)
		templates.Render(w, r, "login", loginFormData{
			BaseVM: viewdata.NewBaseVM(r, "Sign in", "/"),
			Error:  "This sign-in link is invalid or has expired. Please request a new one.",
			Next:   "/",
		})
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "verify token failed", err, "Unable to sign you in right now.", "/login")
		return
	}

	h.completeSignIn(ctx, w, r, v, methodLink)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login/verify                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleVerifyCode signs in with the typed code from the email.
func (h *Handler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}
	email := userstore.NormalizeEmail(r.FormValue("email"))
	code := strings.TrimSpace(r.FormValue("code"))
	next := safeNext(r.FormValue("next"))

	renderErr := func(status int, msg string) {
		w.WriteHeader(status)
		templates.Render(w, r, "login_sent", sentData{
			BaseVM:    viewdata.NewBaseVM(r, "Check your email", "/login"),
			Error:     msg,
			Email:     email,
			Next:      next,
			ExpiresIn: formatExpiryDuration(h.EmailVerify.Expiry()),
		})
	}

	if email == "" || code == "" {
		renderErr(http.StatusBadRequest, "Please enter the code from the email.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.EmailVerify.VerifyCode(ctx, email, code)
	switch {
	case errors.Is(err, emailverify.ErrTooManyAttempts):
		h.Metrics.IncSignIn(methodCode, "locked")
		h.AuditLog.MagicLinkInvalid(ctx, r, "too many attempts")
		renderErr(http.StatusTooManyRequests, "Too many incorrect attempts. Please request a new sign-in email.")
		return
	case errors.Is(err, emailverify.ErrInvalidCode), errors.Is(err, emailverify.ErrNotFound):
		h.Metrics.IncSignIn(methodCode, "invalid")
		h.AuditLog.MagicLinkInvalid(ctx, r, "invalid or expired code")
		renderErr(http.StatusBadRequest, "Invalid or expired code. Please try again.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "verify code failed", err, "Unable to sign you in right now.", "/login")
		return
	}

	h.completeSignIn(ctx, w, r, v, methodCode)
}

// completeSignIn writes the session cookie and redirects to the stored next.
func (h *Handler) completeSignIn(ctx context.Context, w http.ResponseWriter, r *http.Request, v *emailverify.Verification, method string) {
	u, err := h.Users.GetByID(ctx, v.UserID)
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "That account no longer exists.", "/login")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user after verification failed", err, "Unable to sign you in right now.", "/login")
		return
	}
	if u.Status == userstore.StatusDisabled {
		uierrors.RenderForbidden(w, r, "This account is disabled.", "/")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err, "Unable to sign you in right now.", "/login")
		return
	}

	h.Metrics.IncSignIn(method, "ok")
	h.AuditLog.MagicLinkUsed(ctx, r, u.ID)
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()), zap.String("method", method))

	http.Redirect(w, r, safeNext(v.Next), http.StatusSeeOther)
}
