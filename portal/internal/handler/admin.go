package handler

import (
	"fmt"
	"net/http"

	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/session"
	"github.com/Astemirdum/library-portal/portal/internal/store"
	"github.com/Astemirdum/library-portal/portal/internal/view"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	adminBooksPath  = "/admin/books"
	adminUsersPath  = "/admin/users"
	adminBorrowPath = "/admin/borrow"

	loadFailed = "Failed to load data"
)

// AdminView renders one of the admin views, loading the workspace on first use.
func (h *Handler) AdminView(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	var (
		flash   string
		loadErr error
	)
	w.LoadOnce(func() bool {
		loadErr = h.loadAdmin(c, w)
		return loadErr == nil
	})
	if loadErr != nil {
		if errors.Is(loadErr, errs.ErrUnauthorized) {
			return loadErr
		}
		flash = loadFailed
	}

	key := c.Param("view")
	route := h.adminRouter.Navigate(w, key)
	if route.Name != key {
		return c.Redirect(http.StatusSeeOther, "/admin/"+route.Name)
	}
	route = applyQuery(c, w)
	return h.render(c, h.adminRouter, route.Name, view.Template(view.AreaAdmin, route.Name),
		view.BuildAdmin(route, w.Store.Snapshot()), flash)
}

// loadAdmin fetches everything the admin views show. A failed load leaves the workspace
// unloaded so that the next view tries again.
func (h *Handler) loadAdmin(c echo.Context, w *store.Workspace) error {
	if err := h.admin.Load(c.Request().Context(), w.Store); err != nil {
		w.Unload()
		return err
	}
	return nil
}

// applyQuery takes the filter and the popup of the current route from the query string.
func applyQuery(c echo.Context, w *store.Workspace) store.Route {
	q := c.QueryParams()
	route := w.Route()
	if q.Has("q") || q.Has("status") || q.Has("subject") {
		route = w.SetFilter(store.Filter{
			Query:   q.Get("q"),
			Status:  q.Get("status"),
			Subject: q.Get("subject"),
		})
	}
	if q.Has("popup") {
		route = w.OpenPopup(q.Get("popup"))
	}
	return route
}

// SaveBook creates a book on POST /admin/books and edits one on POST /admin/books/:id.
func (h *Handler) SaveBook(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	var req model.BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id := c.Param("id")
	if _, err := h.admin.SaveBook(c.Request().Context(), w.Store, id, req); err != nil {
		return h.fail(c, adminBooksPath, "Save failed", err)
	}
	w.ClosePopup()
	msg := "Book added"
	if id != "" {
		msg = "Book updated"
	}
	return h.done(c, adminBooksPath, msg)
}

func (h *Handler) ConfirmDeleteBook(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	book, ok := w.Store.Books.Get(c.Param("id"))
	if !ok {
		return h.fail(c, adminBooksPath, "Delete failed", errs.Validation(errors.New("book not found")))
	}
	return h.confirm(c, h.adminRouter, "books", view.Confirm{
		Title:        "Delete book",
		Message:      fmt.Sprintf("Delete %q?", book.Title),
		Cancel:       adminBooksPath,
		ConfirmLabel: "Delete",
	})
}

func (h *Handler) DeleteBook(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteBook(c.Request().Context(), w.Store, c.Param("id")); err != nil {
		return h.fail(c, adminBooksPath, "Delete failed", err)
	}
	return h.done(c, adminBooksPath, "Book deleted")
}

func (h *Handler) ConfirmDeleteUser(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	user, ok := w.Store.Users.Get(c.Param("id"))
	if !ok {
		return h.fail(c, adminUsersPath, "Delete failed", errs.Validation(errors.New("user not found")))
	}
	return h.confirm(c, h.adminRouter, "users", view.Confirm{
		Title:        "Delete user",
		Message:      fmt.Sprintf("Delete %s (%s)?", user.Name, user.Email),
		Cancel:       adminUsersPath,
		ConfirmLabel: "Delete",
	})
}

func (h *Handler) DeleteUser(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteUser(c.Request().Context(), w.Store, c.Param("id")); err != nil {
		return h.fail(c, adminUsersPath, "Delete failed", err)
	}
	return h.done(c, adminUsersPath, "User deleted")
}

func (h *Handler) ConfirmDeleteBorrow(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	rec, ok := w.Store.Loans.Get(c.Param("id"))
	if !ok {
		return h.fail(c, adminBorrowPath, "Delete failed", errs.Validation(errors.New("record not found")))
	}
	cf := view.Confirm{
		Title:        "Delete borrow record",
		Message:      fmt.Sprintf("Delete the record of %q borrowed by %s?", rec.BookTitle(), rec.Borrower()),
		Cancel:       adminBorrowPath,
		ConfirmLabel: "Delete",
	}
	if rec.Active() {
		cf.Note = "This book has not been returned yet."
	}
	return h.confirm(c, h.adminRouter, "borrow", cf)
}

func (h *Handler) DeleteBorrow(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteBorrow(c.Request().Context(), w.Store, c.Param("id")); err != nil {
		return h.fail(c, adminBorrowPath, "Delete failed", err)
	}
	return h.done(c, adminBorrowPath, "Record deleted")
}

// CreateAdmin registers another administrator and reloads the workspace.
func (h *Handler) CreateAdmin(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	var req model.CreateAdminRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	msg, err := h.admin.CreateAdmin(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, session.AdminHomePath, "Create admin failed", err)
	}
	if err := h.loadAdmin(c, w); err != nil {
		return h.fail(c, session.AdminHomePath, loadFailed, err)
	}
	return h.done(c, session.AdminHomePath, msg)
}

func (h *Handler) Reload(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	if err := h.loadAdmin(c, w); err != nil {
		return h.fail(c, session.AdminHomePath, loadFailed, err)
	}
	w.MarkLoaded()
	return h.done(c, session.AdminHomePath, "Data reloaded")
}
