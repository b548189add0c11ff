package handler

import (
	"net/http"
	"time"

	mw "github.com/Astemirdum/library-portal/pkg/middleware"
	"github.com/Astemirdum/library-portal/pkg/validate"
	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/session"
	"github.com/Astemirdum/library-portal/portal/internal/view"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const csrfField = "_csrf"

type Handler struct {
	log      *zap.Logger
	guard    *session.Guard
	auth     AuthAPI
	admin    AdminService
	student  StudentService
	renderer echo.Renderer

	adminRouter   *view.Router
	studentRouter *view.Router
	now           func() time.Time
}

func New(log *zap.Logger, guard *session.Guard, auth AuthAPI, admin AdminService, student StudentService, renderer echo.Renderer) *Handler {
	return &Handler{
		log:           log.Named("handler"),
		guard:         guard,
		auth:          auth,
		admin:         admin,
		student:       student,
		renderer:      renderer,
		adminRouter:   view.NewRouter(view.AreaAdmin),
		studentRouter: view.NewRouter(view.AreaStudent),
		now:           time.Now,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS   = 10
		portalRPS = 100
	)
	e.HideBanner = true
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Validator = validate.NewCustomValidator()
	e.Renderer = h.renderer
	e.HTTPErrorHandler = h.errorHandler

	base := e.Group("", mw.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	portal := e.Group("",
		middleware.RequestLoggerWithConfig(mw.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		mw.NewRateLimiter(portalRPS),
		middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "form:" + csrfField,
			CookieName:     csrfField,
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSameSite: http.SameSiteLaxMode,
		}),
	)
	portal.GET("/", h.Home)
	portal.GET("/login", h.LoginForm)
	portal.POST("/login", h.Login)
	portal.GET("/register", h.RegisterForm)
	portal.POST("/register", h.Register)
	portal.GET("/logout", h.Logout)
	portal.POST("/logout", h.Logout)

	adm := portal.Group("/admin", h.guard.Middleware, h.guard.RequireRole(model.RoleAdmin))
	adm.GET("/:view", h.AdminView)
	adm.POST("/books", h.SaveBook)
	adm.POST("/books/:id", h.SaveBook)
	adm.GET("/books/:id/delete", h.ConfirmDeleteBook)
	adm.POST("/books/:id/delete", h.DeleteBook)
	adm.GET("/users/:id/delete", h.ConfirmDeleteUser)
	adm.POST("/users/:id/delete", h.DeleteUser)
	adm.GET("/borrow/:id/delete", h.ConfirmDeleteBorrow)
	adm.POST("/borrow/:id/delete", h.DeleteBorrow)
	adm.POST("/admins", h.CreateAdmin)
	adm.POST("/reload", h.Reload)

	st := portal.Group("/student", h.guard.Middleware, h.guard.RequireRole(model.RoleStudent))
	st.GET("/:view", h.StudentView)
	st.GET("/books/:id", h.BookDetails)
	st.GET("/issue/:id", h.ConfirmIssue)
	st.POST("/issue/:id", h.Issue)
	st.GET("/return/:id", h.ConfirmReturn)
	st.POST("/return/:id", h.Return)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// errorHandler sends a rejected session back to the login page. Everything else is
// answered the way echo does by default.
func (h *Handler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if errors.Is(err, errs.ErrUnauthorized) || errors.Is(err, errs.ErrNoSession) {
		h.expire(c)
		return
	}
	if errors.Is(err, errs.ErrNotFound) {
		err = echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	c.Echo().DefaultHTTPErrorHandler(err, c)
}

func (h *Handler) expire(c echo.Context) {
	h.guard.Expire(c)
	setFlash(c, errs.ErrUnauthorized.Error())
	if err := c.Redirect(http.StatusSeeOther, session.LoginPath); err != nil {
		h.log.Error("redirect to login", zap.Error(err))
	}
}

// fail turns a failed action into a notification on the page at back.
func (h *Handler) fail(c echo.Context, back, prefix string, err error) error {
	if errors.Is(err, errs.ErrUnauthorized) {
		return err
	}
	msg := err.Error()
	if !errors.Is(err, errs.ErrValidation) {
		h.log.Error(prefix, zap.String("path", c.Path()), zap.Error(err))
		msg = prefix + ": " + msg
	}
	setFlash(c, msg)
	return c.Redirect(http.StatusSeeOther, back)
}

func (h *Handler) done(c echo.Context, back, msg string) error {
	setFlash(c, msg)
	return c.Redirect(http.StatusSeeOther, back)
}

func (h *Handler) render(c echo.Context, router *view.Router, current, tpl string, content any, flash string) error {
	s, _ := session.FromContext(c.Request().Context())
	title := current
	if info, ok := router.Resolve(current); ok {
		title = info.Title
	}
	if f := popFlash(c); f != "" {
		flash = f
	}
	return c.Render(http.StatusOK, tpl, view.Page{
		Title:   title,
		Area:    router.Area(),
		Routes:  router.Routes(),
		Current: current,
		User:    s.Name,
		Flash:   flash,
		CSRF:    csrfToken(c),
		Content: content,
	})
}

func csrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}

func (h *Handler) confirm(c echo.Context, router *view.Router, current string, cf view.Confirm) error {
	if cf.ConfirmLabel == "" {
		cf.ConfirmLabel = "Confirm"
	}
	cf.Action = c.Request().URL.Path
	return h.render(c, router, current, "confirm", cf, "")
}
