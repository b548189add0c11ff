package admin_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Astemirdum/library-portal/pkg/circuit_breaker"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/audit"
	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/service/admin"
	"github.com/Astemirdum/library-portal/portal/internal/service/api"
	"github.com/Astemirdum/library-portal/portal/internal/store"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	api_mocks "github.com/Astemirdum/library-portal/portal/internal/service/admin/mocks"
)

var (
	books = []model.Book{
		{ID: "b1", Title: "Dune", Author: "Herbert", Subject: "SciFi", Quantity: 2},
		{ID: "b2", Title: "Emma", Author: "Austen", Quantity: 0},
	}
	users = []model.User{
		{ID: "u1", Name: "Root", Email: "root@lib.io", Role: model.RoleAdmin},
		{ID: "u2", Name: "Ann", Email: "ann@lib.io", Role: model.RoleStudent},
	}
	loans = []model.LoanRecord{
		{ID: "r1", Book: model.BookRef{ID: "b1", Title: "Dune"}, User: model.UserRef{ID: "u2", Name: "Ann"}, Status: model.LoanActive, Fine: 10},
	}
	profile = model.Profile{ID: "u1", Name: "Root", Role: model.RoleAdmin}

	errAPI = errs.NewAPIError(500, "")
)

func newService(t *testing.T) (*admin.Service, *api_mocks.MockLibraryAPI) {
	t.Helper()
	c := gomock.NewController(t)
	m := api_mocks.NewMockLibraryAPI(c)
	log := zap.NewExample().Named("test")
	return admin.NewService(log, m, audit.NewRecorder(log, nil)), m
}

func seeded() *store.Store {
	st := store.New()
	st.Books.Replace(books)
	st.Users.Replace(users)
	st.Loans.Replace(loans)
	return st
}

func TestService_Load(t *testing.T) {
	t.Parallel()
	type mockBehavior func(m *api_mocks.MockLibraryAPI)

	tests := []struct {
		name         string
		mockBehavior mockBehavior
		wantErr      string
		wantBooks    int
		wantProfile  bool
	}{
		{
			name: "ok",
			mockBehavior: func(m *api_mocks.MockLibraryAPI) {
				m.EXPECT().ListBooks(gomock.Any()).Return(books, nil)
				m.EXPECT().ListUsers(gomock.Any()).Return(users, nil)
				m.EXPECT().ListBorrows(gomock.Any()).Return(loans, nil)
				m.EXPECT().Profile(gomock.Any()).Return(profile, nil)
			},
			wantBooks:   2,
			wantProfile: true,
		},
		{
			name: "one failure fails everything",
			mockBehavior: func(m *api_mocks.MockLibraryAPI) {
				m.EXPECT().ListBooks(gomock.Any()).Return(books, nil).AnyTimes()
				m.EXPECT().ListUsers(gomock.Any()).Return(nil, errAPI)
				m.EXPECT().ListBorrows(gomock.Any()).Return(loans, nil).AnyTimes()
				m.EXPECT().Profile(gomock.Any()).Return(profile, nil).AnyTimes()
			},
			wantErr: "users: API error: HTTP 500",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, m := newService(t)
			tt.mockBehavior(m)
			st := store.New()

			err := svc.Load(context.Background(), st)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				snap := st.Snapshot()
				require.Empty(t, snap.Books)
				require.Empty(t, snap.Users)
				require.Empty(t, snap.Loans)
				require.Nil(t, snap.Profile)
				return
			}
			require.NoError(t, err)
			snap := st.Snapshot()
			require.Len(t, snap.Books, tt.wantBooks)
			require.Equal(t, users, snap.Users)
			require.Equal(t, loans, snap.Loans)
			require.Equal(t, tt.wantProfile, snap.Profile != nil)
		})
	}
}

func TestService_SaveBook(t *testing.T) {
	t.Parallel()
	type mockBehavior func(m *api_mocks.MockLibraryAPI, st *store.Store)

	tests := []struct {
		name         string
		id           string
		req          model.BookRequest
		mockBehavior mockBehavior
		wantErr      error
		wantOutcome  store.Outcome
		wantBooks    []model.Book
	}{
		{
			name: "create",
			req:  model.BookRequest{Title: "  Ulysses ", Author: "Joyce", Quantity: 1},
			mockBehavior: func(m *api_mocks.MockLibraryAPI, st *store.Store) {
				m.EXPECT().CreateBook(gomock.Any(), model.BookRequest{Title: "Ulysses", Author: "Joyce", Quantity: 1}).
					DoAndReturn(func(ctx context.Context, req model.BookRequest) (*model.Book, error) {
						require.Equal(t, 3, st.Books.Len())
						return &model.Book{ID: "b3", Title: "Ulysses", Author: "Joyce", Quantity: 1}, nil
					})
			},
			wantOutcome: store.Confirmed,
			wantBooks:   append([]model.Book{{ID: "b3", Title: "Ulysses", Author: "Joyce", Quantity: 1}}, books...),
		},
		{
			name: "create fails",
			req:  model.BookRequest{Title: "Ulysses", Quantity: 1},
			mockBehavior: func(m *api_mocks.MockLibraryAPI, st *store.Store) {
				m.EXPECT().CreateBook(gomock.Any(), gomock.Any()).Return(nil, errAPI)
			},
			wantErr:     errAPI,
			wantOutcome: store.RolledBack,
			wantBooks:   books,
		},
		{
			name:         "blank title",
			req:          model.BookRequest{Title: "   ", Quantity: 1},
			mockBehavior: func(m *api_mocks.MockLibraryAPI, st *store.Store) {},
			wantErr:      errs.ErrValidation,
			wantBooks:    books,
		},
		{
			name:         "negative quantity",
			id:           "b1",
			req:          model.BookRequest{Title: "Dune", Quantity: -3},
			mockBehavior: func(m *api_mocks.MockLibraryAPI, st *store.Store) {},
			wantErr:      errs.ErrValidation,
			wantBooks:    books,
		},
		{
			name: "update",
			id:   "b2",
			req:  model.BookRequest{Title: "Emma", Author: "Jane Austen", Subject: "Classic", Quantity: 4},
			mockBehavior: func(m *api_mocks.MockLibraryAPI, st *store.Store) {
				m.EXPECT().UpdateBook(gomock.Any(), "b2", gomock.Any()).Return(nil)
			},
			wantOutcome: store.Confirmed,
			wantBooks: []model.Book{
				books[0],
				{ID: "b2", Title: "Emma", Author: "Jane Austen", Subject: "Classic", Quantity: 4},
			},
		},
		{
			name: "update fails",
			id:   "b1",
			req:  model.BookRequest{Title: "Dune 2", Quantity: 9},
			mockBehavior: func(m *api_mocks.MockLibraryAPI, st *store.Store) {
				m.EXPECT().UpdateBook(gomock.Any(), "b1", gomock.Any()).
					DoAndReturn(func(ctx context.Context, id string, req model.BookRequest) error {
						b, _ := st.Books.Get("b1")
						require.Equal(t, "Dune 2", b.Title)
						return errAPI
					})
			},
			wantErr:     errAPI,
			wantOutcome: store.RolledBack,
			wantBooks:   books,
		},
		{
			name:         "update unknown",
			id:           "b404",
			req:          model.BookRequest{Title: "x"},
			mockBehavior: func(m *api_mocks.MockLibraryAPI, st *store.Store) {},
			wantErr:      errs.ErrNotFound,
			wantBooks:    books,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, m := newService(t)
			st := seeded()
			tt.mockBehavior(m, st)

			res, err := svc.SaveBook(context.Background(), st, tt.id, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, tt.wantOutcome, res.Outcome)
			require.Equal(t, tt.wantBooks, st.Books.List())
		})
	}
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("book rolled back at index", func(t *testing.T) {
		t.Parallel()
		svc, m := newService(t)
		st := seeded()
		m.EXPECT().DeleteBook(gomock.Any(), "b1").Return(errAPI)

		err := svc.DeleteBook(context.Background(), st, "b1")
		require.ErrorIs(t, err, errAPI)
		require.Equal(t, books, st.Books.List())
	})

	t.Run("user", func(t *testing.T) {
		t.Parallel()
		svc, m := newService(t)
		st := seeded()
		m.EXPECT().DeleteUser(gomock.Any(), "u2").Return(nil)

		require.NoError(t, svc.DeleteUser(context.Background(), st, "u2"))
		require.Equal(t, users[:1], st.Users.List())
	})

	t.Run("borrow", func(t *testing.T) {
		t.Parallel()
		svc, m := newService(t)
		st := seeded()
		m.EXPECT().DeleteBorrow(gomock.Any(), "r1").Return(nil)

		require.NoError(t, svc.DeleteBorrow(context.Background(), st, "r1"))
		require.Empty(t, st.Loans.List())
	})

	t.Run("provisional", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		st := seeded()
		err := svc.DeleteBook(context.Background(), st, store.ProvisionalID())
		require.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestService_HTMLAnswerRollsBack(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<!doctype html><title>maintenance</title>")
	}))
	t.Cleanup(srv.Close)
	log := zap.NewExample().Named("test")
	client := api.NewClient(log, config.API{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Breaker: circuit_breaker.Config{RecordLength: 10, Timeout: time.Second, Percentile: 1, RecoveryRequests: 1},
	}, nil)
	svc := admin.NewService(log, client, audit.NewRecorder(log, nil))

	st := seeded()
	res, err := svc.SaveBook(context.Background(), st, "b1", model.BookRequest{Title: "Dune 2", Quantity: 9})
	require.ErrorIs(t, err, errs.ErrDecode)
	require.Equal(t, store.RolledBack, res.Outcome)
	require.Equal(t, books, st.Books.List())

	err = svc.DeleteBook(context.Background(), st, "b2")
	require.ErrorIs(t, err, errs.ErrDecode)
	require.Equal(t, books, st.Books.List())

	err = svc.DeleteUser(context.Background(), st, "u2")
	require.ErrorIs(t, err, errs.ErrDecode)
	require.Equal(t, users, st.Users.List())
}

func TestService_CreateAdmin(t *testing.T) {
	t.Parallel()
	req := model.CreateAdminRequest{Name: "Bob", Email: "bob@lib.io", Password: "secret"}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, m := newService(t)
		m.EXPECT().CreateAdmin(gomock.Any(), req).Return(model.MessageResponse{}, nil)
		msg, err := svc.CreateAdmin(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, "Admin created", msg)
	})

	t.Run("incomplete", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		_, err := svc.CreateAdmin(context.Background(), model.CreateAdminRequest{Name: "Bob"})
		require.ErrorIs(t, err, errs.ErrValidation)
		require.EqualError(t, err, "complete all fields")
	})

	t.Run("api", func(t *testing.T) {
		t.Parallel()
		svc, m := newService(t)
		m.EXPECT().CreateAdmin(gomock.Any(), req).Return(model.MessageResponse{}, errors.New("Email already in use"))
		_, err := svc.CreateAdmin(context.Background(), req)
		require.EqualError(t, err, "Email already in use")
	})
}
