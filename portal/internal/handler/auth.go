package handler

import (
	"net/http"

	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/session"
	"github.com/Astemirdum/library-portal/portal/internal/view"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const registeredNotice = "Registration successful. Please sign in."

func (h *Handler) Home(c echo.Context) error {
	return c.Render(http.StatusOK, "home", view.Page{Title: "Welcome", Flash: popFlash(c), CSRF: csrfToken(c)})
}

func (h *Handler) LoginForm(c echo.Context) error {
	return h.authPage(c, http.StatusOK, "login", "Sign in", view.AuthForm{Notice: popFlash(c)})
}

func (h *Handler) Login(c echo.Context) error {
	var creds model.Credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	form := view.AuthForm{Email: creds.Email}
	if err := c.Validate(creds); err != nil {
		form.Error = err.Error()
		return h.authPage(c, http.StatusUnprocessableEntity, "login", "Sign in", form)
	}

	resp, err := h.auth.Login(c.Request().Context(), creds)
	if err != nil {
		h.log.Info("login failed", zap.String("email", creds.Email), zap.Error(err))
		form.Error = err.Error()
		return h.authPage(c, http.StatusUnprocessableEntity, "login", "Sign in", form)
	}
	home, err := h.guard.Login(c, resp)
	if err != nil {
		h.log.Warn("login refused", zap.String("email", creds.Email), zap.Error(err))
		form.Error = "Unknown role. Contact the library administrator."
		return h.authPage(c, http.StatusUnprocessableEntity, "login", "Sign in", form)
	}
	return c.Redirect(http.StatusSeeOther, home)
}

func (h *Handler) RegisterForm(c echo.Context) error {
	return h.authPage(c, http.StatusOK, "register", "Register", view.AuthForm{})
}

func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	form := view.AuthForm{Name: req.Name, Email: req.Email}
	if err := c.Validate(req); err != nil {
		form.Error = err.Error()
		return h.authPage(c, http.StatusUnprocessableEntity, "register", "Register", form)
	}
	if _, err := h.auth.Register(c.Request().Context(), req); err != nil {
		form.Error = err.Error()
		var apiErr *errs.APIError
		if !errors.As(err, &apiErr) {
			h.log.Error("register", zap.Error(err))
		}
		return h.authPage(c, http.StatusUnprocessableEntity, "register", "Register", form)
	}
	setFlash(c, registeredNotice)
	return c.Redirect(http.StatusSeeOther, session.LoginPath)
}

// Logout ends the session and shows a short notice before the login page.
func (h *Handler) Logout(c echo.Context) error {
	h.guard.Logout(c)
	return c.Render(http.StatusOK, "loggedout", view.Page{
		Title:   "Logged out",
		Content: view.NewLoggedOut(session.LoginPath, h.guard.LogoutDelay()),
	})
}

func (h *Handler) authPage(c echo.Context, code int, tpl, title string, form view.AuthForm) error {
	return c.Render(code, tpl, view.Page{Title: title, CSRF: csrfToken(c), Content: form})
}
