package admin

import (
	"context"

	"github.com/Astemirdum/library-portal/pkg/validate"
	"github.com/Astemirdum/library-portal/portal/internal/audit"
	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/metrics"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryAPI interface {
	ListBooks(ctx context.Context) ([]model.Book, error)
	CreateBook(ctx context.Context, req model.BookRequest) (*model.Book, error)
	UpdateBook(ctx context.Context, id string, req model.BookRequest) error
	DeleteBook(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListBorrows(ctx context.Context) ([]model.LoanRecord, error)
	DeleteBorrow(ctx context.Context, id string) error
	Profile(ctx context.Context) (model.Profile, error)
	CreateAdmin(ctx context.Context, req model.CreateAdminRequest) (model.MessageResponse, error)
}

const (
	entityBook   = "book"
	entityUser   = "user"
	entityBorrow = "borrow"
	entityAdmin  = "admin"
)

type Service struct {
	log      *zap.Logger
	api      LibraryAPI
	recorder *audit.Recorder
	valid    *validate.CustomValidator
}

func NewService(log *zap.Logger, api LibraryAPI, recorder *audit.Recorder) *Service {
	return &Service{
		log:      log.Named("admin"),
		api:      api,
		recorder: recorder,
		valid:    validate.NewCustomValidator(),
	}
}

// Load fetches books, users, borrows and the profile concurrently.
// It is all-or-nothing: on any failure the store keeps what it had.
func (s *Service) Load(ctx context.Context, st *store.Store) error {
	var (
		books   []model.Book
		users   []model.User
		loans   []model.LoanRecord
		profile model.Profile
	)
	gg, ctx := errgroup.WithContext(ctx)
	gg.Go(func() (err error) {
		books, err = s.api.ListBooks(ctx)
		metrics.ObserveLoad("admin", "books", err)
		return errors.Wrap(err, "books")
	})
	gg.Go(func() (err error) {
		users, err = s.api.ListUsers(ctx)
		metrics.ObserveLoad("admin", "users", err)
		return errors.Wrap(err, "users")
	})
	gg.Go(func() (err error) {
		loans, err = s.api.ListBorrows(ctx)
		metrics.ObserveLoad("admin", "borrows", err)
		return errors.Wrap(err, "borrows")
	})
	gg.Go(func() (err error) {
		profile, err = s.api.Profile(ctx)
		metrics.ObserveLoad("admin", "profile", err)
		return errors.Wrap(err, "profile")
	})
	if err := gg.Wait(); err != nil {
		s.log.Error("load dashboard", zap.Error(err))
		return err
	}

	st.Books.Replace(books)
	st.Users.Replace(users)
	st.Loans.Replace(loans)
	st.SetProfile(&profile)
	return nil
}

// SaveBook creates a book when id is empty and updates book id otherwise.
func (s *Service) SaveBook(ctx context.Context, st *store.Store, id string, req model.BookRequest) (store.Result[model.Book], error) {
	req = req.Normalize()
	if err := s.valid.Validate(req); err != nil {
		s.recorder.Record(ctx, entityBook, kindOf(id).String(), id, audit.OutcomeRejected)
		return store.Result[model.Book]{Kind: kindOf(id)}, errs.Validation(err)
	}

	if id == "" {
		provisional := req.Apply(model.Book{ID: store.ProvisionalID()})
		res, err := store.Create(ctx, st.Books, provisional, func(ctx context.Context) (*model.Book, error) {
			return s.api.CreateBook(ctx, req)
		})
		s.record(ctx, entityBook, res.Kind, res.Entity.ID, res.Outcome, err)
		return res, err
	}

	if store.IsProvisional(id) {
		return store.Result[model.Book]{Kind: store.KindUpdate}, errs.Validationf("book is still being created")
	}
	res, err := store.Update(ctx, st.Books, id, req.Apply, func(ctx context.Context) error {
		return s.api.UpdateBook(ctx, id, req)
	})
	s.record(ctx, entityBook, store.KindUpdate, id, res.Outcome, err)
	return res, err
}

func (s *Service) DeleteBook(ctx context.Context, st *store.Store, id string) error {
	res, err := remove(ctx, st.Books, id, s.api.DeleteBook)
	s.record(ctx, entityBook, store.KindDelete, id, res.Outcome, err)
	return err
}

func (s *Service) DeleteUser(ctx context.Context, st *store.Store, id string) error {
	res, err := remove(ctx, st.Users, id, s.api.DeleteUser)
	s.record(ctx, entityUser, store.KindDelete, id, res.Outcome, err)
	return err
}

func (s *Service) DeleteBorrow(ctx context.Context, st *store.Store, id string) error {
	res, err := remove(ctx, st.Loans, id, s.api.DeleteBorrow)
	s.record(ctx, entityBorrow, store.KindDelete, id, res.Outcome, err)
	return err
}

// CreateAdmin registers another administrator. It is not optimistic: the user list is
// refreshed by the next Load.
func (s *Service) CreateAdmin(ctx context.Context, req model.CreateAdminRequest) (string, error) {
	if err := s.valid.Validate(req); err != nil {
		return "", errs.Validation(errors.New("complete all fields"))
	}
	resp, err := s.api.CreateAdmin(ctx, req)
	if err != nil {
		s.recorder.Record(ctx, entityAdmin, store.KindCreate.String(), req.Email, audit.OutcomeFailed)
		return "", err
	}
	s.recorder.Record(ctx, entityAdmin, store.KindCreate.String(), req.Email, audit.OutcomeConfirmed)
	if resp.Message == "" {
		resp.Message = "Admin created"
	}
	return resp.Message, nil
}

func remove[T store.Entity](ctx context.Context, c *store.Collection[T], id string, del func(ctx context.Context, id string) error) (store.Result[T], error) {
	if store.IsProvisional(id) {
		return store.Result[T]{Kind: store.KindDelete}, errs.Validationf("entity is still being created")
	}
	return store.Delete(ctx, c, id, func(ctx context.Context) error {
		return del(ctx, id)
	})
}

func (s *Service) record(ctx context.Context, entity string, kind store.Kind, id string, outcome store.Outcome, err error) {
	o := audit.OutcomeConfirmed
	switch {
	case outcome == store.RolledBack:
		o = audit.OutcomeRolledBack
		s.log.Error("mutation rolled back",
			zap.String("entity", entity), zap.Stringer("kind", kind), zap.String("id", id), zap.Error(err))
	case err != nil:
		o = audit.OutcomeRejected
	}
	s.recorder.Record(ctx, entity, kind.String(), id, o)
}

func kindOf(id string) store.Kind {
	if id == "" {
		return store.KindCreate
	}
	return store.KindUpdate
}
