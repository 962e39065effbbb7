// AngelaMos | 2026
// service.go

package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zacanbrcom/auditorium-booking/internal/auth"
	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/notify"
	"github.com/zacanbrcom/auditorium-booking/internal/role"
)

var tracer = otel.Tracer("github.com/zacanbrcom/auditorium-booking/internal/booking")

var (
	ErrConflict  = fmt.Errorf("overlaps an approved reservation: %w", core.ErrConflict)
	ErrNotAuthor = fmt.Errorf("not the author of this reservation: %w", core.ErrForbidden)
)

// DeletePolicy decides who may remove a reservation.
type DeletePolicy string

const (
	DeleteAuthorAndApprover DeletePolicy = "author_and_approver"
	DeleteAuthor            DeletePolicy = "author"
	DeleteAuthorOrApprover  DeletePolicy = "author_or_approver"
)

func (p DeletePolicy) Valid() bool {
	switch p {
	case DeleteAuthorAndApprover, DeleteAuthor, DeleteAuthorOrApprover:
		return true
	}
	return false
}

func (p DeletePolicy) allows(id *auth.Identity, res *Reservation) bool {
	isAuthor := res.Author == id.Email()
	switch p {
	case DeleteAuthor:
		return isAuthor
	case DeleteAuthorOrApprover:
		return isAuthor || id.Has(role.Approver)
	default:
		return isAuthor && id.Has(role.Approver)
	}
}

type Notifier interface {
	Notify(ctx context.Context, e notify.Event)
}

type Service struct {
	repo         Repository
	notifier     Notifier
	deletePolicy DeletePolicy
	logger       *slog.Logger

	// mu serializes the conflict check with the write that depends on it,
	// so no two approved reservations ever overlap.
	mu sync.Mutex
}

func NewService(
	repo Repository,
	notifier Notifier,
	deletePolicy DeletePolicy,
	logger *slog.Logger,
) *Service {
	if !deletePolicy.Valid() {
		deletePolicy = DeleteAuthorAndApprover
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		notifier:     notifier,
		deletePolicy: deletePolicy,
		logger:       logger,
	}
}

func (s *Service) List(ctx context.Context) (ReservationList, error) {
	return s.repo.List(ctx, nil)
}

func (s *Service) Get(ctx context.Context, id uint64) (*Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

// Filter returns reservations for exactly rooms whose start lies within
// [from, to].
func (s *Service) Filter(
	ctx context.Context,
	rooms Rooms,
	from, to time.Time,
) (ReservationList, error) {
	return s.repo.List(ctx, func(_ uint64, r Reservation) bool {
		return r.Rooms == rooms &&
			!r.BeginTime.Before(from) &&
			!r.BeginTime.After(to)
	})
}

func (s *Service) Create(
	ctx context.Context,
	id *auth.Identity,
	req NewReservationRequest,
) (uint64, error) {
	ctx, span := s.start(ctx, "booking.Create", id)
	defer span.End()

	res := req.toReservation(id.Email())

	s.mu.Lock()
	defer s.mu.Unlock()

	if other, found, err := s.repo.FindConflict(ctx, res.Rooms, res.BeginTime, res.EndTime); err != nil {
		return 0, fail(span, err)
	} else if found {
		span.SetAttributes(attribute.Int64("booking.conflict_id", int64(other)))
		return 0, fail(span, ErrConflict)
	}

	newID, err := s.repo.Create(ctx, res)
	if err != nil {
		return 0, fail(span, err)
	}
	span.SetAttributes(attribute.Int64("booking.id", int64(newID)))

	s.logger.InfoContext(ctx, "reservation created",
		"id", newID,
		"author", res.Author,
		"rooms", res.Rooms.String(),
	)
	s.notify(ctx, notify.RequestSubmitted, newID, &res)

	return newID, nil
}

// Update applies patch for the author and sends the reservation back to
// pending approval.
func (s *Service) Update(
	ctx context.Context,
	id *auth.Identity,
	resID uint64,
	patch UpdateReservationRequest,
) (*Reservation, error) {
	ctx, span := s.start(ctx, "booking.Update", id)
	defer span.End()
	span.SetAttributes(attribute.Int64("booking.id", int64(resID)))

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.repo.Update(ctx, resID, func(r *Reservation) error {
		if r.Author != id.Email() {
			return ErrNotAuthor
		}
		patch.apply(r)
		r.Approved = false
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}

	s.logger.InfoContext(ctx, "reservation updated", "id", resID)

	return updated, nil
}

// Approve marks the reservation approved unless an approved reservation
// already holds an overlapping slot, in which case nothing changes and
// false is returned.
func (s *Service) Approve(
	ctx context.Context,
	id *auth.Identity,
	resID uint64,
) (bool, error) {
	ctx, span := s.start(ctx, "booking.Approve", id)
	defer span.End()
	span.SetAttributes(attribute.Int64("booking.id", int64(resID)))

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.GetByID(ctx, resID)
	if err != nil {
		return false, fail(span, err)
	}
	if current.Approved {
		return true, nil
	}

	other, found, err := s.repo.FindConflict(
		ctx,
		current.Rooms,
		current.BeginTime,
		current.EndTime,
	)
	if err != nil {
		return false, fail(span, err)
	}
	if found {
		span.SetAttributes(
			attribute.Bool("booking.approved", false),
			attribute.Int64("booking.conflict_id", int64(other)),
		)
		s.logger.InfoContext(ctx, "approval skipped on conflict",
			"id", resID,
			"conflict_id", other,
		)
		return false, nil
	}

	approved, err := s.repo.Update(ctx, resID, func(r *Reservation) error {
		r.Approved = true
		return nil
	})
	if err != nil {
		return false, fail(span, err)
	}
	span.SetAttributes(attribute.Bool("booking.approved", true))

	s.logger.InfoContext(ctx, "reservation approved",
		"id", resID,
		"approver", id.Email(),
	)
	s.notify(ctx, notify.Approved, resID, approved)

	return true, nil
}

func (s *Service) Delete(ctx context.Context, id *auth.Identity, resID uint64) error {
	ctx, span := s.start(ctx, "booking.Delete", id)
	defer span.End()
	span.SetAttributes(
		attribute.Int64("booking.id", int64(resID)),
		attribute.String("booking.delete_policy", string(s.deletePolicy)),
	)

	current, err := s.repo.GetByID(ctx, resID)
	if err != nil {
		return fail(span, err)
	}

	if !s.deletePolicy.allows(id, current) {
		return fail(span, fmt.Errorf(
			"delete reservation %d under policy %s: %w",
			resID,
			s.deletePolicy,
			core.ErrForbidden,
		))
	}

	if err := s.repo.Delete(ctx, resID); err != nil {
		return fail(span, err)
	}

	s.logger.InfoContext(ctx, "reservation deleted",
		"id", resID,
		"by", id.Email(),
	)
	s.notify(ctx, notify.Deleted, resID, current)

	return nil
}

func (s *Service) start(
	ctx context.Context,
	name string,
	id *auth.Identity,
) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("user.email", id.Email()))
	return ctx, span
}

func (s *Service) notify(ctx context.Context, kind notify.Kind, id uint64, r *Reservation) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notify.Event{
		Kind:   kind,
		ID:     id,
		Name:   r.Name,
		Author: r.Author,
		Rooms:  uint8(r.Rooms),
		Begin:  r.BeginTime,
		End:    r.EndTime,
	})
}

// fail records err on span unless it is a client-side outcome.
func fail(span trace.Span, err error) error {
	if !errors.Is(err, core.ErrConflict) &&
		!errors.Is(err, core.ErrForbidden) &&
		!errors.Is(err, core.ErrNotFound) {
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, err.Error())
	return err
}
