// AngelaMos | 2026
// dto.go

package booking

import (
	"time"

	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

type NewReservationRequest struct {
	Name        string    `json:"name"        validate:"required,max=255"`
	Description string    `json:"description" validate:"max=4096"`
	Rooms       Rooms     `json:"rooms"       validate:"required,oneof=1 2 3"`
	BeginTime   time.Time `json:"begin_time"  validate:"required"`
	EndTime     time.Time `json:"end_time"    validate:"required,gtfield=BeginTime"`
	Layout      uint8     `json:"layout"`
	People      uint16    `json:"people"`
}

func (r NewReservationRequest) toReservation(author string) Reservation {
	return Reservation{
		Name:        r.Name,
		Description: r.Description,
		Author:      author,
		Rooms:       r.Rooms,
		BeginTime:   r.BeginTime.UTC(),
		EndTime:     r.EndTime.UTC(),
		Layout:      r.Layout,
		People:      r.People,
	}
}

// UpdateReservationRequest is a partial patch; nil fields are left alone.
type UpdateReservationRequest struct {
	Name        *string    `json:"name"        validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=4096"`
	Rooms       *Rooms     `json:"rooms"       validate:"omitempty,oneof=1 2 3"`
	BeginTime   *time.Time `json:"begin_time"`
	EndTime     *time.Time `json:"end_time"`
	Layout      *uint8     `json:"layout"`
	People      *uint16    `json:"people"`
}

func (p UpdateReservationRequest) apply(r *Reservation) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Rooms != nil {
		r.Rooms = *p.Rooms
	}
	if p.BeginTime != nil {
		r.BeginTime = p.BeginTime.UTC()
	}
	if p.EndTime != nil {
		r.EndTime = p.EndTime.UTC()
	}
	if p.Layout != nil {
		r.Layout = *p.Layout
	}
	if p.People != nil {
		r.People = *p.People
	}
}

type CreatedResponse struct {
	ID uint64 `json:"id"`
}

type ApproveResponse struct {
	ID       uint64 `json:"id"`
	Approved bool   `json:"approved"`
}

// ReservationList is the ordered list of [id, reservation] pairs.
type ReservationList = []store.Entry[uint64, Reservation]
