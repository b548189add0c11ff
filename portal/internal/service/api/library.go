package api

import (
	"context"
	"net/url"

	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/pkg/errors"
)

func resource(base, id string) string {
	return base + "/" + url.PathEscape(id)
}

func (c *Client) ListBooks(ctx context.Context) ([]model.Book, error) {
	var env Envelope
	if err := c.Get(ctx, "/books", &env); err != nil {
		return nil, err
	}
	return List[model.Book](env)
}

// CreateBook returns the created book, nil when the API did not send it back.
func (c *Client) CreateBook(ctx context.Context, req model.BookRequest) (*model.Book, error) {
	var env Envelope
	if err := c.Post(ctx, "/books", req, &env); err != nil {
		return nil, err
	}
	book, err := Entity[model.Book](env)
	if err != nil {
		return nil, err
	}
	if book == nil || book.ID == "" {
		return nil, nil
	}
	return book, nil
}

func (c *Client) UpdateBook(ctx context.Context, id string, req model.BookRequest) error {
	return c.Put(ctx, resource("/books", id), req, nil)
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.Delete(ctx, resource("/books", id), nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var env Envelope
	if err := c.Get(ctx, "/users", &env); err != nil {
		return nil, err
	}
	return List[model.User](env)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.Delete(ctx, resource("/users", id), nil)
}

func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	var env Envelope
	if err := c.Get(ctx, "/users/profile", &env); err != nil {
		return model.Profile{}, err
	}
	p, err := Entity[model.Profile](env)
	if err != nil {
		return model.Profile{}, err
	}
	if p == nil {
		return model.Profile{}, errors.New("empty profile")
	}
	return *p, nil
}

func (c *Client) ListBorrows(ctx context.Context) ([]model.LoanRecord, error) {
	var env Envelope
	if err := c.Get(ctx, "/borrow", &env); err != nil {
		return nil, err
	}
	return List[model.LoanRecord](env)
}

func (c *Client) MyRecords(ctx context.Context) ([]model.LoanRecord, error) {
	var env Envelope
	if err := c.Get(ctx, "/borrow/my-records", &env); err != nil {
		return nil, err
	}
	return List[model.LoanRecord](env)
}

func (c *Client) Issue(ctx context.Context, bookID string) (model.MessageResponse, error) {
	var resp model.MessageResponse
	err := c.Post(ctx, "/borrow/issue", model.IssueRequest{BookID: bookID}, &resp)
	return resp, err
}

func (c *Client) Return(ctx context.Context, recordID string) (model.MessageResponse, error) {
	var resp model.MessageResponse
	err := c.Post(ctx, "/borrow/return", model.ReturnRequest{RecordID: recordID}, &resp)
	return resp, err
}

func (c *Client) DeleteBorrow(ctx context.Context, id string) error {
	return c.Delete(ctx, resource("/borrow", id), nil)
}

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (model.MessageResponse, error) {
	var resp model.MessageResponse
	err := c.Post(ctx, "/auth/register", req, &resp)
	return resp, err
}

func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.Post(ctx, "/auth/login", creds, &resp); err != nil {
		return model.LoginResponse{}, err
	}
	if resp.Token == "" {
		return model.LoginResponse{}, errors.New("login response carries no token")
	}
	return resp, nil
}

func (c *Client) CreateAdmin(ctx context.Context, req model.CreateAdminRequest) (model.MessageResponse, error) {
	var resp model.MessageResponse
	err := c.Post(ctx, "/auth/create-admin", req, &resp)
	return resp, err
}
