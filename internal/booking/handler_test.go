// AngelaMos | 2026
// handler_test.go

package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zacanbrcom/auditorium-booking/internal/auth"
	"github.com/zacanbrcom/auditorium-booking/internal/kv"
	"github.com/zacanbrcom/auditorium-booking/internal/middleware"
	"github.com/zacanbrcom/auditorium-booking/internal/role"
	"github.com/zacanbrcom/auditorium-booking/internal/store"
	"github.com/zacanbrcom/auditorium-booking/internal/user"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiFixture struct {
	router http.Handler
	users  *store.Store[string, user.User]
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	return newLimitedAPI(t, nil)
}

func newLimitedAPI(t *testing.T, limitWrites func(http.Handler) http.Handler) *apiFixture {
	t.Helper()
	ctx := context.Background()

	engine, err := kv.Open(
		kv.DriverBolt,
		filepath.Join(t.TempDir(), "api.db"),
		kv.Options{NoSync: true},
	)
	if err != nil {
		t.Fatal(err)
	}
	db := store.New(engine, store.Options{Logger: quietLogger()})
	t.Cleanup(func() { _ = db.Close() })

	users, err := store.Open(ctx, db, user.Table)
	if err != nil {
		t.Fatal(err)
	}
	reservations, err := store.Open(ctx, db, Table)
	if err != nil {
		t.Fatal(err)
	}

	userSvc := user.NewService(user.NewRepository(users, false), "", quietLogger())
	resolver := auth.NewResolver(userSvc)

	svc := NewService(NewRepository(reservations, false), nil, DeleteAuthor, quietLogger())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewHandler(svc).RegisterRoutes(r, middleware.Authenticator(resolver), limitWrites)
	})

	return &apiFixture{router: r, users: users}
}

func (f *apiFixture) grant(t *testing.T, email string, r role.Role) {
	t.Helper()
	_, err := f.users.Insert(context.Background(), email, user.User{
		Name:  email,
		Email: email,
		Role:  r.String(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (f *apiFixture) do(
	t *testing.T,
	method, path, email string,
	body any,
) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if email != "" {
		h, err := auth.EncodeClaim("Bearer", auth.Claim{Name: "tester", Email: email})
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", h)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Code != http.StatusNoContent {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}

	return rec, env
}

func newReservationBody(rooms int, begin, end string) map[string]any {
	return map[string]any{
		"name":        "Assembly",
		"description": "whole school",
		"rooms":       rooms,
		"begin_time":  begin,
		"end_time":    end,
		"layout":      1,
		"people":      120,
	}
}

func TestListIsPublic(t *testing.T) {
	api := newAPI(t)

	rec, env := api.do(t, http.MethodGet, "/api/events", "", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if string(env.Data) != "[]" {
		t.Errorf("expected empty list, got %s", env.Data)
	}
}

func TestIdentityRequired(t *testing.T) {
	api := newAPI(t)

	rec, _ := api.do(t, http.MethodPost, "/api/events", "",
		newReservationBody(1, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing header: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events/1", nil)
	req.Header.Set("Authorization", "Bearer %%%not-base64%%%")
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed claim: status %d", rr.Code)
	}

	if n, _ := api.users.Len(context.Background()); n != 0 {
		t.Errorf("rejected claims must not provision users, have %d", n)
	}
}

func TestBookingFlow(t *testing.T) {
	api := newAPI(t)
	api.grant(t, "boss@example.com", role.Approver)

	rec, env := api.do(t, http.MethodPost, "/api/events", "ann@example.com",
		newReservationBody(3, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	var created CreatedResponse
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatal(err)
	}
	path := "/api/events/" + strconv.FormatUint(created.ID, 10)

	rec, env = api.do(t, http.MethodGet, path, "ann@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var got Reservation
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Author != "ann@example.com" || got.Approved || got.Rooms != Both {
		t.Errorf("unexpected reservation %+v", got)
	}

	rec, _ = api.do(t, http.MethodPost, path+"/approve", "ann@example.com", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("noob approve: status %d", rec.Code)
	}

	rec, env = api.do(t, http.MethodPost, path+"/approve", "boss@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: status %d", rec.Code)
	}
	var approved ApproveResponse
	if err := json.Unmarshal(env.Data, &approved); err != nil {
		t.Fatal(err)
	}
	if !approved.Approved || approved.ID != created.ID {
		t.Errorf("unexpected approve response %+v", approved)
	}

	rec, env = api.do(t, http.MethodPost, "/api/events", "bob@example.com",
		newReservationBody(1, "2024-01-01T10:30:00Z", "2024-01-01T12:00:00Z"))
	if rec.Code != http.StatusConflict || env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Fatalf("conflicting create: status %d body %s", rec.Code, rec.Body.String())
	}

	rec, _ = api.do(t, http.MethodPatch, path, "bob@example.com", map[string]any{"name": "mine"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign patch: status %d", rec.Code)
	}

	rec, env = api.do(t, http.MethodPatch, path, "ann@example.com", map[string]any{"people": 80})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Approved || got.People != 80 || got.Name != "Assembly" {
		t.Errorf("patched reservation %+v", got)
	}

	rec, env = api.do(t, http.MethodGet,
		"/api/events/filter/3/2024-01-01T00:00:00Z/2024-01-02T00:00:00Z", "ann@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("filter: status %d", rec.Code)
	}
	var pairs []json.RawMessage
	if err := json.Unmarshal(env.Data, &pairs); err != nil || len(pairs) != 1 {
		t.Fatalf("filter result %s (%v)", env.Data, err)
	}

	rec, _ = api.do(t, http.MethodDelete, path, "bob@example.com", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: status %d", rec.Code)
	}

	rec, _ = api.do(t, http.MethodDelete, path, "ann@example.com", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}

	rec, _ = api.do(t, http.MethodGet, path, "ann@example.com", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", rec.Code)
	}
}

func TestRequestValidation(t *testing.T) {
	api := newAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{
			"end before begin",
			http.MethodPost, "/api/events",
			newReservationBody(1, "2024-01-01T11:00:00Z", "2024-01-01T10:00:00Z"),
		},
		{
			"bad rooms",
			http.MethodPost, "/api/events",
			newReservationBody(4, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z"),
		},
		{"bad id", http.MethodGet, "/api/events/abc", nil},
		{
			"bad filter time",
			http.MethodGet, "/api/events/filter/1/yesterday/2024-01-02T00:00:00Z", nil,
		},
		{
			"patch times reversed",
			http.MethodPatch, "/api/events/1",
			map[string]any{
				"begin_time": "2024-01-01T11:00:00Z",
				"end_time":   "2024-01-01T10:00:00Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := api.do(t, tt.method, tt.path, "ann@example.com", tt.body)
			if rec.Code != http.StatusBadRequest || env.Success {
				t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestWritesAreLimitedPerIdentity(t *testing.T) {
	limiter := middleware.NewRateLimiter(nil, middleware.RateLimitConfig{
		Limit:   middleware.PerWindow(1, 1, time.Hour),
		KeyFunc: middleware.KeyByIdentity,
	})
	api := newLimitedAPI(t, limiter.Handler)

	body := newReservationBody(1, "2024-03-01T10:00:00Z", "2024-03-01T11:00:00Z")

	rec, _ := api.do(t, http.MethodPost, "/api/events", "ann@example.com", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: status %d", rec.Code)
	}

	rec, env := api.do(t, http.MethodPost, "/api/events", "ann@example.com", body)
	if rec.Code != http.StatusTooManyRequests || env.Error == nil || env.Error.Code != "RATE_LIMITED" {
		t.Fatalf("second create: status %d %+v", rec.Code, env.Error)
	}

	if rec, _ := api.do(t, http.MethodGet, "/api/events/1", "ann@example.com", nil); rec.Code == http.StatusTooManyRequests {
		t.Error("reads must not count against the write limit")
	}

	if rec, _ := api.do(t, http.MethodPost, "/api/events", "bob@example.com", body); rec.Code != http.StatusCreated {
		t.Errorf("other author create: status %d", rec.Code)
	}
}

func TestFilterAcceptsEscapedTimes(t *testing.T) {
	api := newAPI(t)

	path := "/api/events/filter/1/" + url.PathEscape("2024-01-01T00:00:00Z") +
		"/" + strings.ReplaceAll("2024-01-02T00:00:00Z", ":", "%3A")
	rec, env := api.do(t, http.MethodGet, path, "ann@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("filter with escaped times: status %d %+v", rec.Code, env.Error)
	}
}
