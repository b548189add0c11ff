// Package fine computes overdue penalties for borrowed books.
package fine

import "time"

const (
	DefaultRate = 5
	DefaultCap  = 200

	day = 24 * time.Hour
)

// Calculator charges Rate per started overdue day, never more than Cap.
type Calculator struct {
	Rate int `json:"rate"`
	Cap  int `json:"cap"`
}

func New(rate, cap int) Calculator {
	return Calculator{Rate: rate, Cap: cap}
}

func Default() Calculator {
	return New(DefaultRate, DefaultCap)
}

// Days returns the number of started days between due and ref.
// A ref that is not after due is never overdue.
func (c Calculator) Days(due, ref time.Time) int {
	if !ref.After(due) {
		return 0
	}
	d := ref.Sub(due)
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}

func (c Calculator) Fine(due, ref time.Time) int {
	amount := c.Days(due, ref) * c.Rate
	if amount > c.Cap {
		return c.Cap
	}
	return amount
}
