package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Astemirdum/library-portal/portal/internal/session"
	"github.com/Astemirdum/library-portal/portal/internal/store"
	"github.com/Astemirdum/library-portal/portal/internal/view"
	"github.com/labstack/echo/v4"
)

const (
	catalogPath = "/student/catalog"
	loansPath   = "/student/loans"
)

// StudentView renders one of the student views, loading the workspace on first use.
func (h *Handler) StudentView(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	flash, ok := h.loadStudent(c, w)
	if !ok {
		h.expire(c)
		return nil
	}

	key := c.Param("view")
	route := h.studentRouter.Navigate(w, key)
	if route.Name != key {
		return c.Redirect(http.StatusSeeOther, "/student/"+route.Name)
	}
	route = applyQuery(c, w)
	content := view.BuildStudent(route, w.Store.Snapshot(), h.student.Calculator(), h.now())
	return h.render(c, h.studentRouter, route.Name, view.Template(view.AreaStudent, route.Name), content, flash)
}

// loadStudent loads the workspace on first use. It returns the notification about the
// collections that could not be loaded and false once the API rejected the session.
func (h *Handler) loadStudent(c echo.Context, w *store.Workspace) (string, bool) {
	ctx := c.Request().Context()
	var failed []string
	w.LoadOnce(func() bool {
		failed = h.student.Load(ctx, w.Store)
		return true
	})
	if len(failed) == 0 {
		return "", true
	}
	if !h.guard.Alive(ctx) {
		return "", false
	}
	return fmt.Sprintf("%s: %s", loadFailed, strings.Join(failed, ", ")), true
}

func (h *Handler) BookDetails(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	book, ok := w.Store.Books.Get(c.Param("id"))
	if !ok {
		setFlash(c, "Book not found")
		return c.Redirect(http.StatusSeeOther, catalogPath)
	}
	return h.render(c, h.studentRouter, "catalog", "student_book", view.BookDetails{Book: book}, "")
}

func (h *Handler) ConfirmIssue(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	book, err := h.student.Borrowable(w.Store, c.Param("id"))
	if err != nil {
		return h.fail(c, catalogPath, "Issue failed", err)
	}
	return h.confirm(c, h.studentRouter, "catalog", view.Confirm{
		Title:        "Issue book",
		Message:      fmt.Sprintf("Borrow %q by %s?", book.Title, book.Author),
		Cancel:       catalogPath,
		ConfirmLabel: "Issue",
	})
}

func (h *Handler) Issue(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	msg, err := h.student.Issue(c.Request().Context(), w.Store, c.Param("id"))
	if err != nil {
		return h.fail(c, catalogPath, "Issue failed", err)
	}
	return h.done(c, loansPath, msg)
}

// ConfirmReturn asks before returning a book and warns about the fine of an overdue one.
func (h *Handler) ConfirmReturn(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	p, err := h.student.PreviewReturn(w.Store, c.Param("id"))
	if err != nil {
		return h.fail(c, loansPath, "Return failed", err)
	}
	cf := view.Confirm{
		Title:        "Return book",
		Message:      fmt.Sprintf("Return %q?", p.Record.BookTitle()),
		Cancel:       loansPath,
		ConfirmLabel: "Return",
	}
	if p.Overdue {
		cf.Note = fmt.Sprintf("This book is %d day(s) overdue. Estimated fine: %d.", p.DaysOverdue, p.EstimatedFine)
	}
	return h.confirm(c, h.studentRouter, "loans", cf)
}

func (h *Handler) Return(c echo.Context) error {
	w, err := session.Workspace(c)
	if err != nil {
		return err
	}
	msg, err := h.student.Return(c.Request().Context(), w.Store, c.Param("id"))
	if err != nil {
		return h.fail(c, loansPath, "Return failed", err)
	}
	return h.done(c, loansPath, msg)
}
