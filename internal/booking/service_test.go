// AngelaMos | 2026
// service_test.go

package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zacanbrcom/auditorium-booking/internal/auth"
	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/kv"
	"github.com/zacanbrcom/auditorium-booking/internal/notify"
	"github.com/zacanbrcom/auditorium-booking/internal/role"
	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Kind, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRepository(t *testing.T) Repository {
	t.Helper()

	engine, err := kv.Open(
		kv.DriverBolt,
		filepath.Join(t.TempDir(), "booking.db"),
		kv.Options{NoSync: true},
	)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}

	db := store.New(engine, store.Options{Logger: quietLogger(), ScanBatch: 4})
	t.Cleanup(func() { _ = db.Close() })

	reservations, err := store.Open(context.Background(), db, Table)
	if err != nil {
		t.Fatalf("open table: %v", err)
	}

	return NewRepository(reservations, false)
}

func newTestService(t *testing.T, policy DeletePolicy) (*Service, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	return NewService(newTestRepository(t), n, policy, quietLogger()), n
}

func identity(email string, r role.Role) *auth.Identity {
	return &auth.Identity{
		User: auth.UserInfo{Name: email, Email: email, Role: r.String()},
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func request(rooms Rooms, begin, end time.Time) NewReservationRequest {
	return NewReservationRequest{
		Name:      "event",
		Rooms:     rooms,
		BeginTime: begin,
		EndTime:   end,
		People:    30,
	}
}

var (
	alice    = identity("alice@example.com", role.Noob)
	bob      = identity("bob@example.com", role.Noob)
	approver = identity("boss@example.com", role.Approver)
)

func TestConflicts(t *testing.T) {
	t.Parallel()

	existing := Reservation{
		Rooms:     North,
		BeginTime: at(10, 0),
		EndTime:   at(11, 0),
		Approved:  true,
	}

	tests := []struct {
		name     string
		existing Reservation
		rooms    Rooms
		begin    time.Time
		end      time.Time
		want     bool
	}{
		{"same room overlapping", existing, North, at(10, 30), at(11, 30), true},
		{"other room", existing, South, at(10, 0), at(11, 0), false},
		{"candidate wants both", existing, Both, at(10, 0), at(11, 0), true},
		{"touching end", existing, North, at(11, 0), at(12, 0), true},
		{"touching start", existing, North, at(9, 0), at(10, 0), true},
		{"before", existing, North, at(8, 0), at(9, 59), false},
		{"after", existing, North, at(11, 1), at(12, 0), false},
		{"contained", existing, North, at(10, 15), at(10, 45), true},
		{
			"existing both",
			Reservation{Rooms: Both, BeginTime: at(10, 0), EndTime: at(11, 0), Approved: true},
			South, at(10, 0), at(11, 0), true,
		},
		{
			"unapproved never blocks",
			Reservation{Rooms: Both, BeginTime: at(10, 0), EndTime: at(11, 0)},
			Both, at(10, 0), at(11, 0), false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Conflicts(tt.existing, tt.rooms, tt.begin, tt.end)
			if got != tt.want {
				t.Errorf("Conflicts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRooms(t *testing.T) {
	t.Parallel()

	for _, r := range []Rooms{North, South, Both} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
		if !r.Intersects(r) {
			t.Errorf("%s should intersect itself", r)
		}
	}
	if Rooms(0).Valid() || Rooms(4).Valid() {
		t.Error("out of range masks should be invalid")
	}
	if North.Intersects(South) {
		t.Error("north and south are disjoint")
	}
}

func TestCreateStartsPendingWithCallerAsAuthor(t *testing.T) {
	svc, n := newTestService(t, DeleteAuthor)
	ctx := context.Background()

	id, err := svc.Create(ctx, alice, request(North, at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Approved {
		t.Error("new reservation should not be approved")
	}
	if got.Author != alice.Email() {
		t.Errorf("author = %q", got.Author)
	}
	if kinds := n.kinds(); len(kinds) != 1 || kinds[0] != notify.RequestSubmitted {
		t.Errorf("notifications = %v", kinds)
	}
}

func TestApprovedBothRoomsBlocksCreation(t *testing.T) {
	svc, _ := newTestService(t, DeleteAuthor)
	ctx := context.Background()

	r1, err := svc.Create(ctx, alice, request(Both, at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatal(err)
	}

	approved, err := svc.Approve(ctx, approver, r1)
	if err != nil || !approved {
		t.Fatalf("approve: %v %v", approved, err)
	}

	_, err = svc.Create(ctx, bob, request(North, at(10, 0), at(11, 0)))
	if !errors.Is(err, ErrConflict) || !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	list, _ := svc.List(ctx)
	if len(list) != 1 {
		t.Fatalf("rejected create must not store anything, have %d", len(list))
	}
}

func TestUnapprovedNeverBlocksCreation(t *testing.T) {
	svc, _ := newTestService(t, DeleteAuthor)
	ctx := context.Background()

	if _, err := svc.Create(ctx, alice, request(North, at(10, 0), at(11, 0))); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, bob, request(North, at(10, 30), at(11, 30))); err != nil {
		t.Fatalf("unapproved overlap should not block: %v", err)
	}
}

func TestUpdateByNonAuthorIsRejected(t *testing.T) {
	svc, _ := newTestService(t, DeleteAuthor)
	ctx := context.Background()

	id, err := svc.Create(ctx, alice, request(North, at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(ctx, approver, id); err != nil {
		t.Fatal(err)
	}

	name := "hijacked"
	_, err = svc.Update(ctx, bob, id, UpdateReservationRequest{Name: &name})
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	got, _ := svc.Get(ctx, id)
	if got.Name != "event" || !got.Approved {
		t.Errorf("record changed after rejected update: %+v", got)
	}
}

func TestUpdateResetsApproval(t *testing.T) {
	svc, _ := newTestService(t, DeleteAuthor)
	ctx := context.Background()

	id, err := svc.Create(ctx, alice, request(South, at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(ctx, approver, id); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Update(ctx, alice, id, UpdateReservationRequest{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if got.Approved {
		t.Error("empty update must reset approval")
	}

	people := uint16(99)
	end := at(12, 0)
	got, err = svc.Update(ctx, alice, id, UpdateReservationRequest{People: &people, EndTime: &end})
	if err != nil {
		t.Fatal(err)
	}
	if got.People != 99 || !got.EndTime.Equal(end) || got.Name != "event" {
		t.Errorf("patch applied wrongly: %+v", got)
	}

	if _, err := svc.Update(ctx, alice, 999, UpdateReservationRequest{}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestApproveSkipsOnConflict(t *testing.T) {
	svc, n := newTestService(t, DeleteAuthor)
	ctx := context.Background()

	first, _ := svc.Create(ctx, alice, request(North, at(10, 0), at(11, 0)))
	second, _ := svc.Create(ctx, bob, request(North, at(10, 30), at(11, 30)))

	if ok, err := svc.Approve(ctx, approver, first); err != nil || !ok {
		t.Fatalf("approve first: %v %v", ok, err)
	}

	ok, err := svc.Approve(ctx, approver, second)
	if err != nil {
		t.Fatalf("conflicting approval should not error: %v", err)
	}
	if ok {
		t.Fatal("conflicting approval should be skipped")
	}

	got, _ := svc.Get(ctx, second)
	if got.Approved {
		t.Error("skipped approval changed state")
	}

	if ok, err := svc.Approve(ctx, approver, first); err != nil || !ok {
		t.Errorf("re-approving is idempotent: %v %v", ok, err)
	}

	if _, err := svc.Approve(ctx, approver, 12345); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	approvals := 0
	for _, k := range n.kinds() {
		if k == notify.Approved {
			approvals++
		}
	}
	if approvals != 1 {
		t.Errorf("approval notifications = %d", approvals)
	}
}

func TestConcurrentApprovalsKeepApprovedSetDisjoint(t *testing.T) {
	svc, _ := newTestService(t, DeleteAuthor)
	ctx := context.Background()

	var ids []uint64
	for i := range 8 {
		id, err := svc.Create(ctx, alice, request(North, at(10, i), at(11, i)))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Approve(ctx, approver, id); err != nil {
				t.Errorf("approve %d: %v", id, err)
			}
		}()
	}
	wg.Wait()

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}

	approved := 0
	for _, e := range list {
		if e.Value.Approved {
			approved++
		}
	}
	if approved != 1 {
		t.Fatalf("expected exactly one approved reservation, got %d", approved)
	}
}

func TestDeletePolicies(t *testing.T) {
	seniorAuthor := identity("alice@example.com", role.Approver)

	tests := []struct {
		policy DeletePolicy
		caller *auth.Identity
		allow  bool
	}{
		{DeleteAuthorAndApprover, alice, false},
		{DeleteAuthorAndApprover, approver, false},
		{DeleteAuthorAndApprover, seniorAuthor, true},
		{DeleteAuthor, alice, true},
		{DeleteAuthor, approver, false},
		{DeleteAuthorOrApprover, approver, true},
		{DeleteAuthorOrApprover, bob, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy)+"/"+tt.caller.User.Role, func(t *testing.T) {
			svc, n := newTestService(t, tt.policy)
			ctx := context.Background()

			id, err := svc.Create(ctx, alice, request(North, at(10, 0), at(11, 0)))
			if err != nil {
				t.Fatal(err)
			}

			err = svc.Delete(ctx, tt.caller, id)
			if tt.allow {
				if err != nil {
					t.Fatalf("delete: %v", err)
				}
				if _, err := svc.Get(ctx, id); !errors.Is(err, core.ErrNotFound) {
					t.Errorf("reservation still present: %v", err)
				}
				if kinds := n.kinds(); kinds[len(kinds)-1] != notify.Deleted {
					t.Errorf("notifications = %v", kinds)
				}
				return
			}

			if !errors.Is(err, core.ErrForbidden) {
				t.Fatalf("expected forbidden, got %v", err)
			}
			if _, err := svc.Get(ctx, id); err != nil {
				t.Errorf("reservation removed despite refusal: %v", err)
			}
		})
	}
}

func TestDeleteMissing(t *testing.T) {
	svc, _ := newTestService(t, DeleteAuthor)
	if err := svc.Delete(context.Background(), alice, 77); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFilterMatchesExactMaskAndStartWindow(t *testing.T) {
	svc, _ := newTestService(t, DeleteAuthor)
	ctx := context.Background()

	inside, _ := svc.Create(ctx, alice, request(North, at(10, 0), at(11, 0)))
	_, _ = svc.Create(ctx, alice, request(Both, at(10, 0), at(11, 0)))
	_, _ = svc.Create(ctx, alice, request(North, at(14, 0), at(15, 0)))
	edge, _ := svc.Create(ctx, alice, request(North, at(12, 0), at(16, 0)))

	list, err := svc.Filter(ctx, North, at(9, 0), at(12, 0))
	if err != nil {
		t.Fatal(err)
	}

	if len(list) != 2 || list[0].Key != inside || list[1].Key != edge {
		t.Fatalf("unexpected filter result %+v", list)
	}
}

func TestNewServiceFallsBackToLiteralPolicy(t *testing.T) {
	svc := NewService(newTestRepository(t), nil, DeletePolicy("anyone"), nil)
	if svc.deletePolicy != DeleteAuthorAndApprover {
		t.Fatalf("policy = %s", svc.deletePolicy)
	}
}
