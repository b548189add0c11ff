package session

import (
	"context"
	"net/http"
	"time"

	"github.com/Astemirdum/library-portal/pkg/auth"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/metrics"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	LoginPath        = "/login"
	AdminHomePath    = "/admin/dashboard"
	StudentHomePath  = "/student/dashboard"
	workspaceCtxKey  = "workspace"
	sessionCookieAge = -1
)

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey{}, s)
	ctx = auth.WithToken(ctx, s.Token)
	return auth.WithUser(ctx, auth.User{Name: s.Name, Role: string(s.Role)})
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// HomePath is the dashboard of role, empty for a role the portal has no dashboard for.
func HomePath(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return AdminHomePath
	case model.RoleStudent:
		return StudentHomePath
	default:
		return ""
	}
}

// Guard keeps pages behind a signed-in session and ends the session once the API
// stops accepting its token.
type Guard struct {
	log        *zap.Logger
	repo       Repository
	workspaces *store.Workspaces
	cfg        config.Session
	now        func() time.Time
}

func NewGuard(log *zap.Logger, repo Repository, workspaces *store.Workspaces, cfg config.Session) *Guard {
	return &Guard{
		log:        log.Named("session"),
		repo:       repo,
		workspaces: workspaces,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Middleware sends requests without a usable session to the login page before any
// other work is done.
func (g *Guard) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := g.current(c)
		if err != nil {
			g.clearCookie(c)
			return c.Redirect(http.StatusSeeOther, LoginPath)
		}
		req := c.Request()
		c.SetRequest(req.WithContext(WithSession(req.Context(), s)))
		c.Set(workspaceCtxKey, g.workspaces.Acquire(s.ID))
		metrics.SetWorkspaces(g.workspaces.Len())
		return next(c)
	}
}

// RequireRole sends a signed-in user of another role to their own dashboard.
func (g *Guard) RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := FromContext(c.Request().Context())
			if !ok {
				return c.Redirect(http.StatusSeeOther, LoginPath)
			}
			if s.Role != role {
				if home := HomePath(s.Role); home != "" {
					return c.Redirect(http.StatusSeeOther, home)
				}
				return c.Redirect(http.StatusSeeOther, LoginPath)
			}
			return next(c)
		}
	}
}

func (g *Guard) current(c echo.Context) (Session, error) {
	cookie, err := c.Cookie(g.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, errs.ErrNoSession
	}
	ctx := c.Request().Context()
	s, err := g.repo.Get(ctx, cookie.Value)
	if err != nil {
		if !errors.Is(err, errs.ErrNoSession) {
			g.log.Error("session lookup", zap.Error(err))
		}
		return Session{}, err
	}
	if s.Token == "" {
		g.end(ctx, s.ID)
		return Session{}, errs.ErrNoSession
	}
	if auth.Expired(s.Token, g.now()) {
		g.log.Debug("token expired", zap.String("user", s.Name))
		g.end(ctx, s.ID)
		return Session{}, errs.ErrUnauthorized
	}
	return s, nil
}

// Reject ends the session carried by ctx. The API client calls it on every 401.
func (g *Guard) Reject(ctx context.Context) {
	s, ok := FromContext(ctx)
	if !ok {
		return
	}
	g.log.Info("token rejected by API", zap.String("user", s.Name))
	g.end(ctx, s.ID)
}

// Alive reports whether the session carried by ctx has not been ended meanwhile.
func (g *Guard) Alive(ctx context.Context) bool {
	s, ok := FromContext(ctx)
	if !ok {
		return false
	}
	_, err := g.repo.Get(ctx, s.ID)
	return err == nil
}

// Login starts a session for a successful sign-in and returns the page to go to.
func (g *Guard) Login(c echo.Context, resp model.LoginResponse) (string, error) {
	home := HomePath(resp.User.Role)
	if home == "" {
		return "", errors.Errorf("unknown role %q", resp.User.Role)
	}
	if old, err := c.Cookie(g.cfg.CookieName); err == nil && old.Value != "" {
		g.end(c.Request().Context(), old.Value)
	}
	s := Session{
		ID:        uuid.NewString(),
		Token:     resp.Token,
		Role:      resp.User.Role,
		Name:      resp.User.Name,
		CreatedAt: g.now(),
	}
	if err := g.repo.Save(c.Request().Context(), s, g.cfg.TTL); err != nil {
		return "", errors.Wrap(err, "save session")
	}
	c.SetCookie(g.cookie(s.ID, int(g.cfg.TTL.Seconds())))
	return home, nil
}

// Logout ends the current session, if any.
func (g *Guard) Logout(c echo.Context) {
	if cookie, err := c.Cookie(g.cfg.CookieName); err == nil && cookie.Value != "" {
		g.end(c.Request().Context(), cookie.Value)
	}
	g.clearCookie(c)
}

// LogoutDelay is how long the signed-out notice stays before going to login.
func (g *Guard) LogoutDelay() time.Duration {
	return g.cfg.LogoutDelay
}

// Expire clears the cookie of a session that Reject already ended.
func (g *Guard) Expire(c echo.Context) {
	g.clearCookie(c)
}

func (g *Guard) end(ctx context.Context, id string) {
	if err := g.repo.Delete(ctx, id); err != nil {
		g.log.Error("session delete", zap.Error(err))
	}
	g.workspaces.Drop(id)
	metrics.SetWorkspaces(g.workspaces.Len())
}

func (g *Guard) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   g.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (g *Guard) clearCookie(c echo.Context) {
	c.SetCookie(g.cookie("", sessionCookieAge))
}

// Workspace returns the workspace Middleware attached to c.
func Workspace(c echo.Context) (*store.Workspace, error) {
	w, ok := c.Get(workspaceCtxKey).(*store.Workspace)
	if !ok {
		return nil, errs.ErrNoSession
	}
	return w, nil
}
