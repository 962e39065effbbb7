// AngelaMos | 2026
// entity.go

package booking

import (
	"time"

	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

// Rooms is a bit mask over the two halves of the auditorium.
type Rooms uint8

const (
	North Rooms = 1
	South Rooms = 2
	Both  Rooms = North | South
)

func (r Rooms) Valid() bool {
	return r >= North && r <= Both
}

// Intersects reports whether two masks claim a common room. Both
// intersects everything.
func (r Rooms) Intersects(other Rooms) bool {
	return r == Both || other == Both || r == other
}

func (r Rooms) String() string {
	switch r {
	case North:
		return "north"
	case South:
		return "south"
	case Both:
		return "both"
	default:
		return "none"
	}
}

type Reservation struct {
	Name        string    `json:"name"        cbor:"name"`
	Description string    `json:"description" cbor:"description"`
	Author      string    `json:"author"      cbor:"author"`
	Rooms       Rooms     `json:"rooms"       cbor:"rooms"`
	BeginTime   time.Time `json:"begin_time"  cbor:"begin_time"`
	EndTime     time.Time `json:"end_time"    cbor:"end_time"`
	Layout      uint8     `json:"layout"      cbor:"layout"`
	Approved    bool      `json:"approved"    cbor:"approved"`
	People      uint16    `json:"people"      cbor:"people"`
}

// Table is the "reservation" partition, keyed by store-allocated ids.
var Table = store.Table[uint64, Reservation]{Name: "reservation"}

// Conflicts reports whether an approved existing reservation blocks a
// candidate for rooms over [begin, end]. Touching endpoints count as
// overlap.
func Conflicts(existing Reservation, rooms Rooms, begin, end time.Time) bool {
	if !existing.Approved {
		return false
	}
	overlap := !existing.BeginTime.After(end) && !existing.EndTime.Before(begin)
	return overlap && existing.Rooms.Intersects(rooms)
}
