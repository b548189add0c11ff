package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
)

const Uncategorized = "Uncategorized"

type Book struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Quantity int    `json:"quantity"`
}

func (b Book) Key() string { return b.ID }

func (b Book) Available() bool { return b.Quantity > 0 }

// Category is the subject used for grouping, books without one fall into Uncategorized.
func (b Book) Category() string {
	if b.Subject == "" {
		return Uncategorized
	}
	return b.Subject
}

type BookRequest struct {
	Title    string `json:"title" form:"title" validate:"notblank"`
	Author   string `json:"author" form:"author"`
	Subject  string `json:"subject" form:"subject"`
	Quantity int    `json:"quantity" form:"quantity" validate:"gte=0"`
}

func (r BookRequest) Normalize() BookRequest {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.Subject = strings.TrimSpace(r.Subject)
	return r
}

// Apply copies the editable fields of r onto b.
func (r BookRequest) Apply(b Book) Book {
	b.Title = r.Title
	b.Author = r.Author
	b.Subject = r.Subject
	b.Quantity = r.Quantity
	return b
}

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u User) Key() string { return u.ID }

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type Profile = User

// BookRef is the book of a loan, either a bare id or the populated book.
type BookRef struct {
	ID    string `json:"_id"`
	Title string `json:"title,omitempty"`
}

func (r *BookRef) UnmarshalJSON(b []byte) error {
	type plain BookRef
	return unmarshalRef(b, &r.ID, (*plain)(r))
}

// UserRef is the borrower of a loan, either a bare id or the populated user.
type UserRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (r *UserRef) UnmarshalJSON(b []byte) error {
	type plain UserRef
	return unmarshalRef(b, &r.ID, (*plain)(r))
}

func unmarshalRef(b []byte, id *string, populated any) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '"':
		return json.Unmarshal(b, id)
	default:
		return json.Unmarshal(b, populated)
	}
}

type LoanRecord struct {
	ID         string     `json:"_id"`
	Book       BookRef    `json:"bookId"`
	User       UserRef    `json:"userId"`
	IssueDate  time.Time  `json:"issueDate"`
	DueDate    time.Time  `json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`
	Status     LoanStatus `json:"status"`
	Fine       float64    `json:"fine"`
}

func (r LoanRecord) Key() string { return r.ID }

func (r LoanRecord) Active() bool { return r.Status == LoanActive }

func (r LoanRecord) Overdue(now time.Time) bool {
	return r.Active() && r.DueDate.Before(now)
}

// BookTitle falls back to the book id when the API did not populate the book.
func (r LoanRecord) BookTitle() string {
	if r.Book.Title != "" {
		return r.Book.Title
	}
	return r.Book.ID
}

func (r LoanRecord) Borrower() string {
	if r.User.Name != "" {
		return r.User.Name
	}
	return r.User.ID
}

type Credentials struct {
	Email    string `json:"email" form:"email" validate:"notblank"`
	Password string `json:"password" form:"password" validate:"required"`
}

type RegisterRequest struct {
	Name            string `json:"name" form:"name" validate:"notblank"`
	Email           string `json:"email" form:"email" validate:"notblank"`
	Password        string `json:"password" form:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"-" form:"confirmPassword" validate:"required,eqfield=Password" label:"password confirmation"`
}

type CreateAdminRequest struct {
	Name     string `json:"name" form:"name" validate:"notblank"`
	Email    string `json:"email" form:"email" validate:"notblank"`
	Password string `json:"password" form:"password" validate:"required"`
}

type LoginResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type IssueRequest struct {
	BookID string `json:"bookId"`
}

type ReturnRequest struct {
	RecordID string `json:"recordId"`
}
