package view

import (
	"time"

	"github.com/Astemirdum/library-portal/pkg/fine"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/store"
)

// Page is what every template receives.
type Page struct {
	Title   string
	Area    Area
	Routes  []RouteInfo
	Current string
	User    string
	Flash   string
	// CSRF is the token every POST form of the page carries.
	CSRF    string
	Content any
}

type AuthForm struct {
	Error  string
	Notice string
	Name   string
	Email  string
}

// LoggedOut redirects to Target after a short delay. The page script waits DelayMillis;
// the meta refresh only takes whole seconds and waits DelaySeconds.
type LoggedOut struct {
	Target       string
	DelaySeconds int64
	DelayMillis  int64
}

func NewLoggedOut(target string, delay time.Duration) LoggedOut {
	secs := int64(delay / time.Second)
	if delay%time.Second != 0 {
		secs++
	}
	return LoggedOut{Target: target, DelaySeconds: secs, DelayMillis: delay.Milliseconds()}
}

// Confirm asks the user to approve a destructive or consequential action.
type Confirm struct {
	Title        string
	Message      string
	Note         string
	Action       string
	Cancel       string
	ConfirmLabel string
}

type AdminDashboard struct {
	KPIs    AdminKPIs
	Profile *model.Profile
}

type BookForm struct {
	ID     string
	Action string
	Book   model.BookRequest
}

type AdminBooks struct {
	Filter   store.Filter
	Statuses []string
	Books    []model.Book
	Form     *BookForm
}

type AdminUsers struct {
	Query  string
	Admins []model.User
	Others []model.User
}

type AdminBorrow struct {
	Query string
	Loans []model.LoanRecord
}

type ProfileView struct {
	Profile *model.Profile
}

type StudentDashboard struct {
	KPIs    StudentKPIs
	Recent  []Activity
	Profile *model.Profile
}

type Catalog struct {
	Filter   store.Filter
	Statuses []string
	Subjects []string
	Books    []model.Book
}

type BookDetails struct {
	Book model.Book
}

type LoansView struct {
	Lines []LoanLine
}

type HistoryView struct {
	Records []model.LoanRecord
}

type FinesView struct {
	Summary FineSummary
}

// Template is the template name of a view of area.
func Template(area Area, key string) string {
	if key == "profile" {
		return "profile"
	}
	return string(area) + "_" + key
}

// BuildAdmin turns a snapshot into the content of admin view route.
func BuildAdmin(route store.Route, snap store.Snapshot) any {
	switch route.Name {
	case "books":
		v := AdminBooks{Filter: route.Filter, Statuses: statuses(), Books: FilterBooks(snap.Books, route.Filter)}
		if route.Popup != "" {
			v.Form = bookForm(route.Popup, snap.Books)
		}
		return v
	case "users":
		admins, others := SplitUsers(snap.Users, route.Filter.Query)
		return AdminUsers{Query: route.Filter.Query, Admins: admins, Others: others}
	case "borrow":
		return AdminBorrow{Query: route.Filter.Query, Loans: FilterLoans(snap.Loans, route.Filter.Query)}
	case "profile":
		return ProfileView{Profile: snap.Profile}
	default:
		return AdminDashboard{KPIs: AdminStats(snap), Profile: snap.Profile}
	}
}

const NewBookPopup = "new"

func statuses() []string { return []string{StatusAll, StatusAvailable, StatusOut} }

func bookForm(popup string, books []model.Book) *BookForm {
	if popup == NewBookPopup {
		return &BookForm{Action: "/admin/books"}
	}
	for _, b := range books {
		if b.ID == popup {
			return &BookForm{
				ID:     b.ID,
				Action: "/admin/books/" + b.ID,
				Book:   model.BookRequest{Title: b.Title, Author: b.Author, Subject: b.Subject, Quantity: b.Quantity},
			}
		}
	}
	return nil
}

// BuildStudent turns a snapshot into the content of student view route.
func BuildStudent(route store.Route, snap store.Snapshot, calc fine.Calculator, now time.Time) any {
	switch route.Name {
	case "catalog":
		return Catalog{
			Filter:   route.Filter,
			Statuses: statuses(),
			Subjects: append([]string{SubjectAll}, Subjects(snap.Books)...),
			Books:    FilterBooks(snap.Books, route.Filter),
		}
	case "loans":
		return LoansView{Lines: ActiveLoans(snap.Loans, calc, now)}
	case "history":
		return HistoryView{Records: History(snap.Loans)}
	case "fines":
		return FinesView{Summary: Fines(snap.Loans, calc, now)}
	case "profile":
		return ProfileView{Profile: snap.Profile}
	default:
		return StudentDashboard{
			KPIs:    StudentStats(snap, calc, now),
			Recent:  RecentActivity(snap.Loans, recentActivity),
			Profile: snap.Profile,
		}
	}
}
