package view

import (
	"sort"
	"strings"
	"time"

	"github.com/Astemirdum/library-portal/pkg/fine"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/Astemirdum/library-portal/portal/internal/store"
)

const (
	StatusAll       = "ALL"
	StatusAvailable = "AVAILABLE"
	StatusOut       = "OUT"
	SubjectAll      = "ALL"

	recentActivity = 6
)

// Match reports whether the space-joined fields contain q, ignoring case.
func Match(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(fields, " ")), q)
}

func FilterBooks(books []model.Book, f store.Filter) []model.Book {
	out := make([]model.Book, 0, len(books))
	for _, b := range books {
		switch f.Status {
		case StatusAvailable:
			if !b.Available() {
				continue
			}
		case StatusOut:
			if b.Available() {
				continue
			}
		}
		if f.Subject != "" && f.Subject != SubjectAll && b.Category() != f.Subject {
			continue
		}
		if !Match(f.Query, b.Title, b.Author, b.Subject) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Subjects lists the distinct categories of books in alphabetical order.
func Subjects(books []model.Book) []string {
	seen := make(map[string]struct{}, len(books))
	out := make([]string, 0, len(books))
	for _, b := range books {
		c := b.Category()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SplitUsers filters users by q over name, email and role and separates administrators.
func SplitUsers(users []model.User, q string) (admins, others []model.User) {
	for _, u := range users {
		if !Match(q, u.Name, u.Email, string(u.Role)) {
			continue
		}
		if u.IsAdmin() {
			admins = append(admins, u)
		} else {
			others = append(others, u)
		}
	}
	return admins, others
}

func FilterLoans(loans []model.LoanRecord, q string) []model.LoanRecord {
	out := make([]model.LoanRecord, 0, len(loans))
	for _, r := range loans {
		if Match(q, r.User.Name, r.Book.Title, string(r.Status)) {
			out = append(out, r)
		}
	}
	return out
}

type AdminKPIs struct {
	TotalQuantity int
	Users         int
	ActiveBorrows int
	TotalFines    float64
}

// AdminStats sums the fines the API reported.
func AdminStats(snap store.Snapshot) AdminKPIs {
	k := AdminKPIs{Users: len(snap.Users)}
	for _, b := range snap.Books {
		k.TotalQuantity += b.Quantity
	}
	for _, r := range snap.Loans {
		if r.Active() {
			k.ActiveBorrows++
		}
		k.TotalFines += r.Fine
	}
	return k
}

type StudentKPIs struct {
	TotalQuantity  int
	Active         int
	Returned       int
	EstimatedFines int
}

// StudentStats estimates outstanding fines of overdue active loans as of now.
func StudentStats(snap store.Snapshot, calc fine.Calculator, now time.Time) StudentKPIs {
	var k StudentKPIs
	for _, b := range snap.Books {
		k.TotalQuantity += b.Quantity
	}
	for _, r := range snap.Loans {
		switch r.Status {
		case model.LoanActive:
			k.Active++
			if r.Overdue(now) {
				k.EstimatedFines += calc.Fine(r.DueDate, now)
			}
		case model.LoanReturned:
			k.Returned++
		}
	}
	return k
}

type Activity struct {
	Returned bool
	Title    string
	At       time.Time
}

// RecentActivity lists the n most recently issued records.
func RecentActivity(loans []model.LoanRecord, n int) []Activity {
	sorted := make([]model.LoanRecord, len(loans))
	copy(sorted, loans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IssueDate.After(sorted[j].IssueDate)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]Activity, 0, len(sorted))
	for _, r := range sorted {
		a := Activity{Title: r.BookTitle(), At: r.IssueDate}
		if r.Status == model.LoanReturned {
			a.Returned = true
			if r.ReturnDate != nil {
				a.At = *r.ReturnDate
			}
		}
		out = append(out, a)
	}
	return out
}

type LoanLine struct {
	Record        model.LoanRecord
	Overdue       bool
	DaysOverdue   int
	EstimatedFine int
}

func ActiveLoans(loans []model.LoanRecord, calc fine.Calculator, now time.Time) []LoanLine {
	out := make([]LoanLine, 0, len(loans))
	for _, r := range loans {
		if !r.Active() {
			continue
		}
		out = append(out, LoanLine{
			Record:        r,
			Overdue:       r.Overdue(now),
			DaysOverdue:   calc.Days(r.DueDate, now),
			EstimatedFine: calc.Fine(r.DueDate, now),
		})
	}
	return out
}

// History lists records newest first, assuming the API sends them oldest first.
func History(loans []model.LoanRecord) []model.LoanRecord {
	out := make([]model.LoanRecord, len(loans))
	for i, r := range loans {
		out[len(loans)-1-i] = r
	}
	return out
}

type FineSummary struct {
	Items []LoanLine
	Total int
	Rate  int
	Cap   int
}

func Fines(loans []model.LoanRecord, calc fine.Calculator, now time.Time) FineSummary {
	s := FineSummary{Rate: calc.Rate, Cap: calc.Cap}
	for _, l := range ActiveLoans(loans, calc, now) {
		if !l.Overdue {
			continue
		}
		s.Items = append(s.Items, l)
		s.Total += l.EstimatedFine
	}
	return s
}
