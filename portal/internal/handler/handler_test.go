package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Astemirdum/library-portal/pkg/fine"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/handler"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/service/student"
	"github.com/Astemirdum/library-portal/portal/internal/session"
	"github.com/Astemirdum/library-portal/portal/internal/store"
	"github.com/Astemirdum/library-portal/portal/internal/view"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	service_mocks "github.com/Astemirdum/library-portal/portal/internal/handler/mocks"
)

const cookieName = "sid"

type fixture struct {
	e          *echo.Echo
	repo       session.Repository
	workspaces *store.Workspaces
	auth       *service_mocks.MockAuthAPI
	admin      *service_mocks.MockAdminService
	student    *service_mocks.MockStudentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := gomock.NewController(t)
	log := zap.NewExample().Named("test")
	f := &fixture{
		repo:       session.NewMemoryRepository(),
		workspaces: store.NewWorkspaces(),
		auth:       service_mocks.NewMockAuthAPI(c),
		admin:      service_mocks.NewMockAdminService(c),
		student:    service_mocks.NewMockStudentService(c),
	}
	guard := session.NewGuard(log, f.repo, f.workspaces, config.Session{
		CookieName:  cookieName,
		TTL:         time.Hour,
		LogoutDelay: 700 * time.Millisecond,
	})
	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	f.e = handler.New(log, guard, f.auth, f.admin, f.student, renderer).NewRouter()
	return f
}

// signIn stores a session of role and returns its cookie.
func (f *fixture) signIn(t *testing.T, role model.Role) *http.Cookie {
	t.Helper()
	s := session.Session{ID: "sid-" + string(role), Token: "opaque", Role: role, Name: "Ann"}
	require.NoError(t, f.repo.Save(context.Background(), s, time.Hour))
	return &http.Cookie{Name: cookieName, Value: s.ID}
}

// loaded returns the workspace behind cookie, already holding books.
func (f *fixture) loaded(cookie *http.Cookie, books ...model.Book) *store.Workspace {
	w := f.workspaces.Acquire(cookie.Value)
	w.Store.Books.Replace(books)
	w.MarkLoaded()
	return w
}

const csrfToken = "csrf-token"

// do sends a request as a browser would. Forms of unsafe methods carry the CSRF token.
func (f *fixture) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	if method != http.MethodGet && method != http.MethodHead {
		signed := url.Values{"_csrf": {csrfToken}}
		for k, v := range form {
			signed[k] = v
		}
		form = signed
		cookies = append(cookies, &http.Cookie{Name: "_csrf", Value: csrfToken})
	}
	return f.send(method, target, form, cookies...)
}

func (f *fixture) send(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var r *http.Request
	if form != nil {
		r = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		r = httptest.NewRequest(method, target, http.NoBody)
	}
	for _, ck := range cookies {
		r.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	f.e.ServeHTTP(w, r)
	return w
}

func flashOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "flash" && ck.Value != "" {
			msg, err := url.QueryUnescape(ck.Value)
			require.NoError(t, err)
			return msg
		}
	}
	return ""
}

func sessionCleared(w *httptest.ResponseRecorder) bool {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == cookieName && ck.Value == "" && ck.MaxAge < 0 {
			return true
		}
	}
	return false
}

var dune = model.Book{ID: "b1", Title: "Dune", Author: "Herbert", Subject: "Sci-Fi", Quantity: 2}

func TestHandler_Guard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.do(http.MethodGet, "/admin/dashboard", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, session.LoginPath, w.Header().Get(echo.HeaderLocation))

	w = f.do(http.MethodGet, "/admin/books", nil, f.signIn(t, model.RoleStudent))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, session.StudentHomePath, w.Header().Get(echo.HeaderLocation))

	w = f.do(http.MethodGet, "/manage/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestHandler_AdminView(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockAdminService)
	type response struct {
		expectedCode     int
		expectedLocation string
		expectedBody     []string
	}

	var tests = []struct {
		name         string
		target       string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name:   "ok. first view loads",
			target: "/admin/books",
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().Load(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, st *store.Store) error {
						st.Books.Replace([]model.Book{dune, {ID: "b2", Title: "Emma", Quantity: 0}})
						return nil
					})
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: []string{"Dune", "Emma", `href="/admin/books/b1/delete"`},
			},
		},
		{
			name:   "ok. filter from query",
			target: "/admin/books?q=emma&status=OUT",
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().Load(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, st *store.Store) error {
						st.Books.Replace([]model.Book{dune, {ID: "b2", Title: "Emma", Quantity: 0}})
						return nil
					})
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: []string{"Emma", `value="emma"`},
			},
		},
		{
			name:   "ok. edit popup",
			target: "/admin/books?popup=b1",
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().Load(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, st *store.Store) error {
						st.Books.Replace([]model.Book{dune})
						return nil
					})
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: []string{"Edit book", `action="/admin/books/b1"`},
			},
		},
		{
			name:   "err. load failed",
			target: "/admin/dashboard",
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().Load(gomock.Any(), gomock.Any()).Return(errors.New("users: boom"))
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: []string{"Failed to load data"},
			},
		},
		{
			name:   "err. token rejected",
			target: "/admin/dashboard",
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().Load(gomock.Any(), gomock.Any()).Return(errors.Wrap(errs.NewAPIError(http.StatusUnauthorized, ""), "books"))
			},
			response: response{
				expectedCode:     http.StatusSeeOther,
				expectedLocation: session.LoginPath,
			},
		},
		{
			name:   "unknown view",
			target: "/admin/fines",
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil)
			},
			response: response{
				expectedCode:     http.StatusSeeOther,
				expectedLocation: "/admin/dashboard",
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			tt.mockBehavior(f.admin)

			w := f.do(http.MethodGet, tt.target, nil, f.signIn(t, model.RoleAdmin))

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedLocation, w.Header().Get(echo.HeaderLocation))
			for _, s := range tt.response.expectedBody {
				require.Contains(t, w.Body.String(), s)
			}
		})
	}
}

func TestHandler_AdminView_LoadsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.signIn(t, model.RoleAdmin)
	f.admin.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	for _, target := range []string{"/admin/dashboard", "/admin/books", "/admin/users"} {
		w := f.do(http.MethodGet, target, nil, cookie)
		require.Equal(t, http.StatusOK, w.Code, target)
	}
}

func TestHandler_AdminView_RouteSwitchClosesPopup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.signIn(t, model.RoleAdmin)
	f.loaded(cookie, dune)

	w := f.do(http.MethodGet, "/admin/books?popup=b1", nil, cookie)
	require.Contains(t, w.Body.String(), "Edit book")

	w = f.do(http.MethodGet, "/admin/users", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/admin/books", nil, cookie)
	require.NotContains(t, w.Body.String(), "Edit book")
}

func TestHandler_SaveBook(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockAdminService)
	type response struct {
		expectedLocation string
		expectedFlash    string
	}

	var tests = []struct {
		name         string
		target       string
		form         url.Values
		mockBehavior mockBehavior
		response     response
	}{
		{
			name:   "ok. create",
			target: "/admin/books",
			form:   url.Values{"title": {"Dune"}, "author": {"Herbert"}, "quantity": {"2"}},
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().
					SaveBook(gomock.Any(), gomock.Any(), "", model.BookRequest{Title: "Dune", Author: "Herbert", Quantity: 2}).
					Return(store.Result[model.Book]{Kind: store.KindCreate, Outcome: store.Confirmed}, nil)
			},
			response: response{expectedLocation: "/admin/books", expectedFlash: "Book added"},
		},
		{
			name:   "ok. update",
			target: "/admin/books/b1",
			form:   url.Values{"title": {"Dune"}, "quantity": {"3"}},
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().
					SaveBook(gomock.Any(), gomock.Any(), "b1", model.BookRequest{Title: "Dune", Quantity: 3}).
					Return(store.Result[model.Book]{Kind: store.KindUpdate, Outcome: store.Confirmed}, nil)
			},
			response: response{expectedLocation: "/admin/books", expectedFlash: "Book updated"},
		},
		{
			name:   "err. validation",
			target: "/admin/books",
			form:   url.Values{"title": {" "}},
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().
					SaveBook(gomock.Any(), gomock.Any(), "", gomock.Any()).
					Return(store.Result[model.Book]{}, errs.Validationf("title is required"))
			},
			response: response{expectedLocation: "/admin/books", expectedFlash: "title is required"},
		},
		{
			name:   "err. rolled back",
			target: "/admin/books/b1",
			form:   url.Values{"title": {"Dune"}},
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().
					SaveBook(gomock.Any(), gomock.Any(), "b1", gomock.Any()).
					Return(store.Result[model.Book]{Outcome: store.RolledBack}, errs.NewAPIError(http.StatusInternalServerError, "db down"))
			},
			response: response{expectedLocation: "/admin/books", expectedFlash: "Save failed: db down"},
		},
		{
			name:   "err. token rejected",
			target: "/admin/books",
			form:   url.Values{"title": {"Dune"}},
			mockBehavior: func(r *service_mocks.MockAdminService) {
				r.EXPECT().
					SaveBook(gomock.Any(), gomock.Any(), "", gomock.Any()).
					Return(store.Result[model.Book]{Outcome: store.RolledBack}, errs.NewAPIError(http.StatusUnauthorized, "jwt expired"))
			},
			response: response{expectedLocation: session.LoginPath, expectedFlash: errs.ErrUnauthorized.Error()},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			cookie := f.signIn(t, model.RoleAdmin)
			f.loaded(cookie, dune)
			tt.mockBehavior(f.admin)

			w := f.do(http.MethodPost, tt.target, tt.form, cookie)

			require.Equal(t, http.StatusSeeOther, w.Code)
			require.Equal(t, tt.response.expectedLocation, w.Header().Get(echo.HeaderLocation))
			require.Equal(t, tt.response.expectedFlash, flashOf(t, w))
		})
	}
}

func TestHandler_DeleteBook(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.signIn(t, model.RoleAdmin)
	f.loaded(cookie, dune)

	w := f.do(http.MethodGet, "/admin/books/b1/delete", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Dune")
	require.Contains(t, w.Body.String(), `action="/admin/books/b1/delete"`)

	w = f.do(http.MethodGet, "/admin/books/nope/delete", nil, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "book not found", flashOf(t, w))

	f.admin.EXPECT().DeleteBook(gomock.Any(), gomock.Any(), "b1").Return(nil)
	w = f.do(http.MethodPost, "/admin/books/b1/delete", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/admin/books", w.Header().Get(echo.HeaderLocation))
	require.Equal(t, "Book deleted", flashOf(t, w))

	f.admin.EXPECT().DeleteBook(gomock.Any(), gomock.Any(), "b1").Return(errs.NewAPIError(http.StatusNotFound, ""))
	w = f.do(http.MethodPost, "/admin/books/b1/delete", url.Values{}, cookie)
	require.Equal(t, "Delete failed: API error: HTTP 404", flashOf(t, w))
}

func TestHandler_CreateAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.signIn(t, model.RoleAdmin)
	f.loaded(cookie)
	req := model.CreateAdminRequest{Name: "Root", Email: "root@lib.io", Password: "secret"}

	gomock.InOrder(
		f.admin.EXPECT().CreateAdmin(gomock.Any(), req).Return("Admin created", nil),
		f.admin.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil),
	)
	w := f.do(http.MethodPost, "/admin/admins", url.Values{"name": {"Root"}, "email": {"root@lib.io"}, "password": {"secret"}}, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, session.AdminHomePath, w.Header().Get(echo.HeaderLocation))
	require.Equal(t, "Admin created", flashOf(t, w))

	f.admin.EXPECT().CreateAdmin(gomock.Any(), gomock.Any()).Return("", errs.Validationf("complete all fields"))
	w = f.do(http.MethodPost, "/admin/admins", url.Values{"name": {"Root"}}, cookie)
	require.Equal(t, "complete all fields", flashOf(t, w))
}

func TestHandler_StudentView(t *testing.T) {
	t.Parallel()
	type mockBehavior func(f *fixture)
	type response struct {
		expectedCode     int
		expectedLocation string
		expectedBody     string
	}

	var tests = []struct {
		name         string
		target       string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name:   "ok",
			target: "/student/catalog?subject=Sci-Fi",
			mockBehavior: func(f *fixture) {
				f.student.EXPECT().Load(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, st *store.Store) []string {
						st.Books.Replace([]model.Book{dune})
						return nil
					})
			},
			response: response{expectedCode: http.StatusOK, expectedBody: `href="/student/issue/b1"`},
		},
		{
			name:   "partial load",
			target: "/student/dashboard",
			mockBehavior: func(f *fixture) {
				f.student.EXPECT().Load(gomock.Any(), gomock.Any()).Return([]string{"records"})
			},
			response: response{expectedCode: http.StatusOK, expectedBody: "Failed to load data: records"},
		},
		{
			name:   "token rejected during load",
			target: "/student/dashboard",
			mockBehavior: func(f *fixture) {
				f.student.EXPECT().Load(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, _ *store.Store) []string {
						s, _ := session.FromContext(ctx)
						_ = f.repo.Delete(ctx, s.ID)
						return []string{"books", "records", "profile"}
					})
			},
			response: response{expectedCode: http.StatusSeeOther, expectedLocation: session.LoginPath},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.student.EXPECT().Calculator().Return(fine.Default()).AnyTimes()
			tt.mockBehavior(f)

			w := f.do(http.MethodGet, tt.target, nil, f.signIn(t, model.RoleStudent))

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedLocation, w.Header().Get(echo.HeaderLocation))
			require.Contains(t, w.Body.String(), tt.response.expectedBody)
		})
	}
}

func TestHandler_Issue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.signIn(t, model.RoleStudent)
	f.loaded(cookie, dune)

	f.student.EXPECT().Borrowable(gomock.Any(), "b1").Return(dune, nil)
	w := f.do(http.MethodGet, "/student/issue/b1", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `action="/student/issue/b1"`)

	f.student.EXPECT().Borrowable(gomock.Any(), "b2").Return(model.Book{}, errs.Validation(errs.ErrUnavailable))
	w = f.do(http.MethodGet, "/student/issue/b2", nil, cookie)
	require.Equal(t, "/student/catalog", w.Header().Get(echo.HeaderLocation))
	require.Equal(t, errs.ErrUnavailable.Error(), flashOf(t, w))

	f.student.EXPECT().Issue(gomock.Any(), gomock.Any(), "b1").Return("Book issued", nil)
	w = f.do(http.MethodPost, "/student/issue/b1", url.Values{}, cookie)
	require.Equal(t, "/student/loans", w.Header().Get(echo.HeaderLocation))
	require.Equal(t, "Book issued", flashOf(t, w))

	f.student.EXPECT().Issue(gomock.Any(), gomock.Any(), "b1").Return("", errs.NewAPIError(http.StatusBadRequest, "limit reached"))
	w = f.do(http.MethodPost, "/student/issue/b1", url.Values{}, cookie)
	require.Equal(t, "/student/catalog", w.Header().Get(echo.HeaderLocation))
	require.Equal(t, "Issue failed: limit reached", flashOf(t, w))
}

func TestHandler_ConfirmReturn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.signIn(t, model.RoleStudent)
	f.loaded(cookie)

	rec := model.LoanRecord{ID: "r1", Book: model.BookRef{ID: "b1", Title: "Dune"}, Status: model.LoanActive}
	f.student.EXPECT().PreviewReturn(gomock.Any(), "r1").
		Return(student.ReturnPreview{Record: rec, Overdue: true, DaysOverdue: 3, EstimatedFine: 15}, nil)
	w := f.do(http.MethodGet, "/student/return/r1", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "This book is 3 day(s) overdue. Estimated fine: 15.")

	f.student.EXPECT().Return(gomock.Any(), gomock.Any(), "r1").Return("Book returned", nil)
	w = f.do(http.MethodPost, "/student/return/r1", url.Values{}, cookie)
	require.Equal(t, "/student/loans", w.Header().Get(echo.HeaderLocation))
	require.Equal(t, "Book returned", flashOf(t, w))
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockAuthAPI)
	type response struct {
		expectedCode     int
		expectedLocation string
		expectedBody     string
	}

	var tests = []struct {
		name         string
		form         url.Values
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok. admin",
			form: url.Values{"email": {"root@lib.io"}, "password": {"secret"}},
			mockBehavior: func(r *service_mocks.MockAuthAPI) {
				r.EXPECT().Login(gomock.Any(), model.Credentials{Email: "root@lib.io", Password: "secret"}).
					Return(model.LoginResponse{Token: "t", User: model.User{Name: "Root", Role: model.RoleAdmin}}, nil)
			},
			response: response{expectedCode: http.StatusSeeOther, expectedLocation: session.AdminHomePath},
		},
		{
			name: "ok. student",
			form: url.Values{"email": {"ann@lib.io"}, "password": {"secret"}},
			mockBehavior: func(r *service_mocks.MockAuthAPI) {
				r.EXPECT().Login(gomock.Any(), gomock.Any()).
					Return(model.LoginResponse{Token: "t", User: model.User{Name: "Ann", Role: model.RoleStudent}}, nil)
			},
			response: response{expectedCode: http.StatusSeeOther, expectedLocation: session.StudentHomePath},
		},
		{
			name:         "err. email required",
			form:         url.Values{"password": {"secret"}},
			mockBehavior: func(r *service_mocks.MockAuthAPI) {},
			response:     response{expectedCode: http.StatusUnprocessableEntity, expectedBody: "email is required"},
		},
		{
			name: "err. invalid credentials",
			form: url.Values{"email": {"ann@lib.io"}, "password": {"wrong"}},
			mockBehavior: func(r *service_mocks.MockAuthAPI) {
				r.EXPECT().Login(gomock.Any(), gomock.Any()).Return(model.LoginResponse{}, errs.NewAPIError(http.StatusUnauthorized, "Invalid credentials"))
			},
			response: response{expectedCode: http.StatusUnprocessableEntity, expectedBody: "Invalid credentials"},
		},
		{
			name: "err. unknown role",
			form: url.Values{"email": {"ann@lib.io"}, "password": {"secret"}},
			mockBehavior: func(r *service_mocks.MockAuthAPI) {
				r.EXPECT().Login(gomock.Any(), gomock.Any()).
					Return(model.LoginResponse{Token: "t", User: model.User{Name: "Ann", Role: "librarian"}}, nil)
			},
			response: response{expectedCode: http.StatusUnprocessableEntity, expectedBody: "Unknown role"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			tt.mockBehavior(f.auth)

			w := f.do(http.MethodPost, "/login", tt.form)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedLocation, w.Header().Get(echo.HeaderLocation))
			require.Contains(t, w.Body.String(), tt.response.expectedBody)
		})
	}
}

func TestHandler_Register(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	form := url.Values{
		"name":            {"Ann"},
		"email":           {"ann@lib.io"},
		"password":        {"password1"},
		"confirmPassword": {"password2"},
	}
	w := f.do(http.MethodPost, "/register", form)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, w.Body.String(), "password confirmation does not match password")

	form.Set("confirmPassword", "password1")
	f.auth.EXPECT().Register(gomock.Any(), model.RegisterRequest{
		Name: "Ann", Email: "ann@lib.io", Password: "password1", ConfirmPassword: "password1",
	}).Return(model.MessageResponse{Message: "User registered"}, nil)
	w = f.do(http.MethodPost, "/register", form)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, session.LoginPath, w.Header().Get(echo.HeaderLocation))
	require.Equal(t, "Registration successful. Please sign in.", flashOf(t, w))
}

func TestHandler_Logout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cookie := f.signIn(t, model.RoleAdmin)
	f.loaded(cookie, dune)

	w := f.do(http.MethodPost, "/logout", url.Values{}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `content="1;url=/login"`)
	require.True(t, sessionCleared(w))
	require.Zero(t, f.workspaces.Len())

	_, err := f.repo.Get(context.Background(), cookie.Value)
	require.ErrorIs(t, err, errs.ErrNoSession)
}

func TestHandler_CSRF(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.do(http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var issued string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "_csrf" {
			issued = ck.Value
		}
	}
	require.NotEmpty(t, issued)
	require.Contains(t, w.Body.String(), `name="_csrf" value="`+issued+`"`)

	form := url.Values{"email": {"ann@lib.io"}, "password": {"secret"}}
	w = f.send(http.MethodPost, "/login", form)
	require.Equal(t, http.StatusBadRequest, w.Code)

	form.Set("_csrf", "forged")
	w = f.send(http.MethodPost, "/login", form, &http.Cookie{Name: "_csrf", Value: issued})
	require.Equal(t, http.StatusForbidden, w.Code)

	cookie := f.signIn(t, model.RoleAdmin)
	f.loaded(cookie)
	w = f.send(http.MethodPost, "/admin/books/b1/delete", url.Values{}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
