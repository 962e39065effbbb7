// AngelaMos | 2026
// server_test.go

package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zacanbrcom/auditorium-booking/internal/config"
)

type fakeHealth struct {
	ready    bool
	shutdown bool
}

func (f *fakeHealth) SetReady(ready bool)       { f.ready = ready }
func (f *fakeHealth) SetShutdown(shutdown bool) { f.shutdown = shutdown }

func newTestServer(h ShutdownNotifier) *Server {
	return New(Config{
		ServerConfig: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		},
		HealthHandler: h,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRouterStripsSlashesAndRecovers(t *testing.T) {
	srv := newTestServer(nil)
	srv.Router().Get("/events", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv.Router().Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("trailing slash not stripped: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panic not recovered: %d", rec.Code)
	}
}

func TestShutdownMarksHealth(t *testing.T) {
	h := &fakeHealth{ready: true}
	srv := newTestServer(h)

	if err := srv.Shutdown(context.Background(), 0); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if h.ready || !h.shutdown {
		t.Errorf("health = %+v", h)
	}
}
