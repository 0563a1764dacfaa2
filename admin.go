package orgsite

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/orgsite/backend"
	"github.com/eringen/orgsite/views"
)

const (
	msgInvalidLogin   = "Invalid email or password"
	msgTooManyLogins  = "Too many login attempts. Try again later."
	msgResetSent      = "If an account exists for that email, a password reset link has been sent."
	msgInvalidReset   = "Invalid or expired reset link."
	minPasswordLength = 6
)

func handleAdminIndex(c echo.Context) error {
	return c.Redirect(http.StatusSeeOther, "/admin/dashboard/")
}

func (a *App) handleAdminLoginPage(c echo.Context) error {
	return Render(c, a.Views.AdminLogin(a.site(c), views.LoginData{Message: c.QueryParam("msg")}))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	email := formString(c, "email")
	if !a.loginLimiter.Check(ip) {
		return RenderStatus(c, http.StatusTooManyRequests,
			a.Views.AdminLogin(a.site(c), views.LoginData{Email: email, Error: msgTooManyLogins}))
	}

	sess, err := a.backend.SignIn(c.Request().Context(), email, c.FormValue("password"))
	if err != nil {
		a.loginLimiter.Record(ip)
		if !errors.Is(err, backend.ErrInvalidCredentials) {
			a.Logger.Warn("sign in failed", zap.Error(err))
		}
		return RenderStatus(c, http.StatusUnauthorized,
			a.Views.AdminLogin(a.site(c), views.LoginData{Email: email, Error: msgInvalidLogin}))
	}
	if err := setAdminToken(c, sess.AccessToken); err != nil {
		return err
	}
	a.Logger.Info("admin signed in", zap.String("email", sess.Email))
	return c.Redirect(http.StatusSeeOther, "/admin/dashboard/")
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if token := sessionValue(c, keyAccessToken); token != "" {
		if err := a.backend.SignOut(c.Request().Context(), token); err != nil {
			a.Logger.Warn("sign out failed", zap.Error(err))
		}
	}
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, loginPath)
}

func (a *App) handleForgotPasswordPage(c echo.Context) error {
	return Render(c, a.Views.AdminForgotPassword(a.site(c), views.ForgotPasswordData{}))
}

// handleForgotPassword asks the backend to mail a reset link. The reply is
// the same whether or not the account exists.
func (a *App) handleForgotPassword(c echo.Context) error {
	email := formString(c, "email")
	if email == "" {
		return RenderStatus(c, http.StatusUnprocessableEntity,
			a.Views.AdminForgotPassword(a.site(c), views.ForgotPasswordData{Error: "Email is required"}))
	}
	if !a.loginLimiter.Allow(c.RealIP()) {
		return RenderStatus(c, http.StatusTooManyRequests,
			a.Views.AdminForgotPassword(a.site(c), views.ForgotPasswordData{Email: email, Error: msgTooManyLogins}))
	}
	redirect := BuildURL(a.Config.URL, "admin", "reset-password")
	if err := a.backend.ResetPasswordForEmail(c.Request().Context(), email, redirect); err != nil {
		a.Logger.Warn("password reset request failed", zap.Error(err))
	}
	return Render(c, a.Views.AdminForgotPassword(a.site(c), views.ForgotPasswordData{Message: msgResetSent}))
}

// recoveryToken returns the token a password update may use: the recovery
// session from a verified link, else the signed-in admin's session.
func recoveryToken(c echo.Context) string {
	if t := sessionValue(c, keyRecoveryToken); t != "" {
		return t
	}
	return sessionValue(c, keyAccessToken)
}

func (a *App) handleResetPasswordPage(c echo.Context) error {
	ctx := c.Request().Context()
	if hash := c.QueryParam("token_hash"); hash != "" {
		sess, err := a.backend.VerifyRecovery(ctx, hash)
		if err != nil {
			if !errors.Is(err, backend.ErrNoSession) {
				a.Logger.Warn("recovery verification failed", zap.Error(err))
			}
			return RenderStatus(c, http.StatusBadRequest,
				a.Views.AdminResetPassword(a.site(c), views.ResetPasswordData{Error: msgInvalidReset}))
		}
		if err := setSessionValues(c, map[string]string{keyRecoveryToken: sess.AccessToken}); err != nil {
			return err
		}
		// drop the token from the address bar
		return c.Redirect(http.StatusSeeOther, "/admin/reset-password/")
	}

	token := recoveryToken(c)
	if token == "" {
		return Render(c, a.Views.AdminResetPassword(a.site(c), views.ResetPasswordData{Error: msgInvalidReset}))
	}
	if _, err := a.backend.GetSession(ctx, token); err != nil {
		return Render(c, a.Views.AdminResetPassword(a.site(c), views.ResetPasswordData{Error: msgInvalidReset}))
	}
	return Render(c, a.Views.AdminResetPassword(a.site(c), views.ResetPasswordData{Valid: true}))
}

func (a *App) handleResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	token := recoveryToken(c)
	if token == "" {
		return RenderStatus(c, http.StatusUnauthorized,
			a.Views.AdminResetPassword(a.site(c), views.ResetPasswordData{Error: msgInvalidReset}))
	}

	password := c.FormValue("password")
	invalid := func(msg string) error {
		return RenderStatus(c, http.StatusUnprocessableEntity,
			a.Views.AdminResetPassword(a.site(c), views.ResetPasswordData{Valid: true, Error: msg}))
	}
	switch {
	case len(password) < minPasswordLength:
		return invalid("Password must be at least 6 characters")
	case password != c.FormValue("confirm"):
		return invalid("Passwords do not match")
	}

	if err := a.backend.UpdatePassword(ctx, token, password); err != nil {
		if errors.Is(err, backend.ErrNoSession) {
			return RenderStatus(c, http.StatusUnauthorized,
				a.Views.AdminResetPassword(a.site(c), views.ResetPasswordData{Error: msgInvalidReset}))
		}
		a.Logger.Warn("password update failed", zap.Error(err))
		return invalid(backend.Message(err, "Could not update the password"))
	}

	if err := a.backend.SignOut(ctx, token); err != nil {
		a.Logger.Warn("sign out after reset failed", zap.Error(err))
	}
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return redirectMsg(c, loginPath, "Password updated. Sign in with your new password.")
}

func (a *App) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	sess, _ := AdminSession(c)
	data := views.DashboardData{Email: sess.Email, Message: c.QueryParam("msg")}

	type counter struct {
		label, href string
		count       func() (int, error)
	}
	counters := []counter{
		{"Blog posts", "/admin/blogs/", func() (int, error) { v, err := a.Store.ListBlogs(ctx, false); return len(v), err }},
		{"Events", "/admin/events/", func() (int, error) { v, err := a.Store.ListEvents(ctx, false); return len(v), err }},
		{"Gallery items", "/admin/gallery/", func() (int, error) { v, err := a.Store.ListGallery(ctx); return len(v), err }},
		{"Forum posts", "/admin/forum/", func() (int, error) { v, err := a.Store.ListForum(ctx); return len(v), err }},
		{"Team members", "/admin/team/", func() (int, error) { v, err := a.Store.ListTeam(ctx); return len(v), err }},
	}
	for _, ct := range counters {
		n, err := ct.count()
		if err != nil {
			return err
		}
		data.Counts = append(data.Counts, views.Count{Label: ct.label, Href: ct.href, N: n})
	}
	return Render(c, a.Views.AdminDashboard(a.site(c), data))
}
