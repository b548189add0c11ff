package student

import (
	"context"
	"sync"
	"time"

	"github.com/Astemirdum/library-portal/pkg/fine"
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
	MyRecords(ctx context.Context) ([]model.LoanRecord, error)
	Profile(ctx context.Context) (model.Profile, error)
	Issue(ctx context.Context, bookID string) (model.MessageResponse, error)
	Return(ctx context.Context, recordID string) (model.MessageResponse, error)
}

const (
	collectionBooks   = "books"
	collectionRecords = "records"
	collectionProfile = "profile"
)

type Service struct {
	log      *zap.Logger
	api      LibraryAPI
	recorder *audit.Recorder
	calc     fine.Calculator
	now      func() time.Time
}

func NewService(log *zap.Logger, api LibraryAPI, recorder *audit.Recorder, calc fine.Calculator) *Service {
	return &Service{
		log:      log.Named("student"),
		api:      api,
		recorder: recorder,
		calc:     calc,
		now:      time.Now,
	}
}

func (s *Service) Calculator() fine.Calculator {
	return s.calc
}

// Load fetches the catalog, the user's records and the profile concurrently.
// Every load stands on its own: a failed one leaves only its collection empty.
// The names of the failed collections are returned.
func (s *Service) Load(ctx context.Context, st *store.Store) []string {
	return s.load(ctx, st, collectionBooks, collectionRecords, collectionProfile)
}

func (s *Service) reload(ctx context.Context, st *store.Store) []string {
	return s.load(ctx, st, collectionBooks, collectionRecords)
}

func (s *Service) load(ctx context.Context, st *store.Store, collections ...string) []string {
	var (
		mu     sync.Mutex
		failed []string
		gg     errgroup.Group
	)
	fail := func(name string, err error) {
		s.log.Warn("load failed", zap.String("collection", name), zap.Error(err))
		mu.Lock()
		failed = append(failed, name)
		mu.Unlock()
	}
	for _, name := range collections {
		name := name
		gg.Go(func() error {
			var err error
			switch name {
			case collectionBooks:
				var books []model.Book
				if books, err = s.api.ListBooks(ctx); err != nil {
					books = nil
				}
				st.Books.Replace(books)
			case collectionRecords:
				var records []model.LoanRecord
				if records, err = s.api.MyRecords(ctx); err != nil {
					records = nil
				}
				st.Loans.Replace(records)
			case collectionProfile:
				var p model.Profile
				if p, err = s.api.Profile(ctx); err != nil {
					st.SetProfile(nil)
				} else {
					st.SetProfile(&p)
				}
			}
			metrics.ObserveLoad("student", name, err)
			if err != nil {
				fail(name, err)
			}
			return nil
		})
	}
	_ = gg.Wait()
	return failed
}

// Borrowable returns book id if it can be issued right now.
func (s *Service) Borrowable(st *store.Store, bookID string) (model.Book, error) {
	book, ok := st.Books.Get(bookID)
	if !ok {
		return model.Book{}, errors.Wrap(errs.ErrNotFound, "book")
	}
	if !book.Available() {
		return book, errs.Validation(errs.ErrUnavailable)
	}
	return book, nil
}

// Issue borrows book id and reloads the catalog and the records.
// A book that is out of stock is refused without asking the API.
func (s *Service) Issue(ctx context.Context, st *store.Store, bookID string) (string, error) {
	if _, err := s.Borrowable(st, bookID); err != nil {
		s.recorder.Record(ctx, "borrow", "issue", bookID, audit.OutcomeRejected)
		return "", err
	}
	resp, err := s.api.Issue(ctx, bookID)
	if err != nil {
		s.recorder.Record(ctx, "borrow", "issue", bookID, audit.OutcomeFailed)
		return "", err
	}
	s.recorder.Record(ctx, "borrow", "issue", bookID, audit.OutcomeConfirmed)
	s.reload(ctx, st)
	if resp.Message == "" {
		resp.Message = "Book issued"
	}
	return resp.Message, nil
}

// ReturnPreview describes what returning a record now would mean.
type ReturnPreview struct {
	Record        model.LoanRecord
	Overdue       bool
	DaysOverdue   int
	EstimatedFine int
}

func (s *Service) PreviewReturn(st *store.Store, recordID string) (ReturnPreview, error) {
	rec, ok := st.Loans.Get(recordID)
	if !ok {
		return ReturnPreview{}, errors.Wrap(errs.ErrNotFound, "record")
	}
	if !rec.Active() {
		return ReturnPreview{}, errs.Validationf("book is already returned")
	}
	now := s.now()
	return ReturnPreview{
		Record:        rec,
		Overdue:       rec.Overdue(now),
		DaysOverdue:   s.calc.Days(rec.DueDate, now),
		EstimatedFine: s.calc.Fine(rec.DueDate, now),
	}, nil
}

// Return gives back the book of record id and reloads the catalog and the records.
func (s *Service) Return(ctx context.Context, st *store.Store, recordID string) (string, error) {
	if _, err := s.PreviewReturn(st, recordID); err != nil {
		s.recorder.Record(ctx, "borrow", "return", recordID, audit.OutcomeRejected)
		return "", err
	}
	resp, err := s.api.Return(ctx, recordID)
	if err != nil {
		s.recorder.Record(ctx, "borrow", "return", recordID, audit.OutcomeFailed)
		return "", err
	}
	s.recorder.Record(ctx, "borrow", "return", recordID, audit.OutcomeConfirmed)
	s.reload(ctx, st)
	if resp.Message == "" {
		resp.Message = "Book returned"
	}
	return resp.Message, nil
}
