package session

import "time"

func (g *Guard) SetNow(now func() time.Time) {
	g.now = now
}
