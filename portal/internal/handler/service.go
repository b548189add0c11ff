package handler

import (
	"context"

	"github.com/Astemirdum/library-portal/pkg/fine"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/service/admin"
	"github.com/Astemirdum/library-portal/portal/internal/service/api"
	"github.com/Astemirdum/library-portal/portal/internal/service/student"
	"github.com/Astemirdum/library-portal/portal/internal/store"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var (
	_ AuthAPI        = (*api.Client)(nil)
	_ AdminService   = (*admin.Service)(nil)
	_ StudentService = (*student.Service)(nil)
)

type AuthAPI interface {
	Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (model.MessageResponse, error)
}

type AdminService interface {
	Load(ctx context.Context, st *store.Store) error
	SaveBook(ctx context.Context, st *store.Store, id string, req model.BookRequest) (store.Result[model.Book], error)
	DeleteBook(ctx context.Context, st *store.Store, id string) error
	DeleteUser(ctx context.Context, st *store.Store, id string) error
	DeleteBorrow(ctx context.Context, st *store.Store, id string) error
	CreateAdmin(ctx context.Context, req model.CreateAdminRequest) (string, error)
}

type StudentService interface {
	Load(ctx context.Context, st *store.Store) []string
	Calculator() fine.Calculator
	Borrowable(st *store.Store, bookID string) (model.Book, error)
	Issue(ctx context.Context, st *store.Store, bookID string) (string, error)
	PreviewReturn(st *store.Store, recordID string) (student.ReturnPreview, error)
	Return(ctx context.Context, st *store.Store, recordID string) (string, error)
}
