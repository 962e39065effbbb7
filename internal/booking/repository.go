// AngelaMos | 2026
// repository.go

package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

type Repository interface {
	List(ctx context.Context, keep func(uint64, Reservation) bool) (ReservationList, error)
	GetByID(ctx context.Context, id uint64) (*Reservation, error)
	Create(ctx context.Context, r Reservation) (uint64, error)
	Update(ctx context.Context, id uint64, fn func(*Reservation) error) (*Reservation, error)
	Delete(ctx context.Context, id uint64) error
	FindConflict(ctx context.Context, rooms Rooms, begin, end time.Time) (uint64, bool, error)
}

type repository struct {
	reservations *store.Store[uint64, Reservation]
	strict       bool
}

func NewRepository(reservations *store.Store[uint64, Reservation], strict bool) Repository {
	return &repository{reservations: reservations, strict: strict}
}

func (r *repository) List(
	ctx context.Context,
	keep func(uint64, Reservation) bool,
) (ReservationList, error) {
	list := store.Collect(r.reservations.All(ctx), keep)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

func (r *repository) GetByID(ctx context.Context, id uint64) (*Reservation, error) {
	var (
		res Reservation
		ok  bool
		err error
	)
	if r.strict {
		res, ok, err = r.reservations.Lookup(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get reservation: %w", err)
		}
	} else {
		res, ok = r.reservations.Get(ctx, id)
	}

	if !ok {
		return nil, fmt.Errorf("get reservation: %w", core.ErrNotFound)
	}

	return &res, nil
}

func (r *repository) Create(ctx context.Context, res Reservation) (uint64, error) {
	id, err := r.reservations.DB().NextID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate reservation id: %w", err)
	}

	if _, err := r.reservations.Insert(ctx, id, res); err != nil {
		return 0, fmt.Errorf("insert reservation: %w", err)
	}

	return id, nil
}

// Update applies fn to the stored reservation in one atomic step. When
// fn fails the record is left as it was and fn's error is returned.
func (r *repository) Update(
	ctx context.Context,
	id uint64,
	fn func(*Reservation) error,
) (*Reservation, error) {
	var (
		updated Reservation
		found   bool
		fnErr   error
	)

	err := r.reservations.Update(ctx, id, func(cur Reservation, ok bool) (Reservation, bool) {
		if !ok {
			return cur, false
		}
		found = true

		next := cur
		if fnErr = fn(&next); fnErr != nil {
			return cur, true
		}
		updated = next
		return next, true
	})
	if err != nil {
		return nil, fmt.Errorf("update reservation: %w", err)
	}

	if !found {
		return nil, fmt.Errorf("update reservation: %w", core.ErrNotFound)
	}
	if fnErr != nil {
		return nil, fnErr
	}

	return &updated, nil
}

func (r *repository) Delete(ctx context.Context, id uint64) error {
	if err := r.reservations.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return nil
}

// FindConflict returns the first approved reservation that blocks rooms
// over [begin, end].
func (r *repository) FindConflict(
	ctx context.Context,
	rooms Rooms,
	begin, end time.Time,
) (uint64, bool, error) {
	for id, res := range r.reservations.All(ctx) {
		if Conflicts(res, rooms, begin, end) {
			return id, true, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, false, fmt.Errorf("conflict check: %w", err)
	}

	return 0, false, nil
}
