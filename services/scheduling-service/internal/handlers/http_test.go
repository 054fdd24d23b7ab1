package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/elevacare/libs/schedule"
	"github.com/md-rashed-zaman/elevacare/libs/schedulingv1"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/internal/storage"
)

type fakeStore struct {
	schedules map[string]*schedule.Schedule
	events    []schedulingv1.Event
	replaced  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{schedules: map[string]*schedule.Schedule{}}
}

func (f *fakeStore) GetSchedule(_ context.Context, expertID string) (*schedule.Schedule, error) {
	s, ok := f.schedules[expertID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) ReplaceSchedule(_ context.Context, s *schedule.Schedule) error {
	f.replaced++
	f.schedules[s.OwnerID] = s
	return nil
}

func (f *fakeStore) CreateEvent(_ context.Context, evt schedulingv1.Event) (string, error) {
	for _, e := range f.events {
		if e.ExpertID == evt.ExpertID && e.Slug == evt.Slug {
			return "", storage.ErrDuplicate
		}
	}
	evt.ID = "evt-" + evt.Slug
	f.events = append(f.events, evt)
	return evt.ID, nil
}

func (f *fakeStore) ListEvents(_ context.Context, expertID string) ([]schedulingv1.Event, error) {
	var out []schedulingv1.Event
	for _, e := range f.events {
		if e.ExpertID == expertID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestHandler(store Store) http.Handler {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil).Routes()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	return rw
}

func TestScheduleRoundTrip(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store)

	rw := do(h, http.MethodGet, "/api/v1/experts/expert-1/schedule", "")
	if rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before schedule exists, got %d", rw.Code)
	}

	rw = do(h, http.MethodPut, "/api/v1/experts/expert-1/schedule", `{
		"timezone": "America/New_York",
		"windows": [{"day_of_week": "monday", "start_time": "09:00", "end_time": "12:00"}]
	}`)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}
	if store.replaced != 1 {
		t.Fatalf("expected one replace, got %d", store.replaced)
	}

	rw = do(h, http.MethodGet, "/api/v1/experts/expert-1/schedule", "")
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var got schedule.Schedule
	if err := json.Unmarshal(rw.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.OwnerID != "expert-1" || got.Timezone != "America/New_York" || len(got.Windows) != 1 {
		t.Fatalf("unexpected schedule %+v", got)
	}
}

func TestPutScheduleRejectsInvalid(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store)

	rw := do(h, http.MethodPut, "/api/v1/experts/expert-1/schedule", `{
		"timezone": "Nowhere/City",
		"windows": [
			{"day_of_week": "friday", "start_time": "22:00", "end_time": "02:00"},
			{"day_of_week": "monday", "start_time": "09:00", "end_time": "12:00"},
			{"day_of_week": "monday", "start_time": "11:00", "end_time": "13:00"}
		]
	}`)
	if rw.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rw.Code)
	}
	var body struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Errors) != 3 {
		t.Fatalf("expected 3 problems, got %v", body.Errors)
	}
	if store.replaced != 0 {
		t.Fatalf("invalid schedule must not be stored")
	}
}

func TestEvents(t *testing.T) {
	h := newTestHandler(newFakeStore())

	rw := do(h, http.MethodPost, "/api/v1/experts/expert-1/events", `{"slug":"intro","name":"Intro call","duration_minutes":30}`)
	if rw.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rw.Code, rw.Body.String())
	}
	rw = do(h, http.MethodPost, "/api/v1/experts/expert-1/events", `{"slug":"intro","name":"Again","duration_minutes":30}`)
	if rw.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate slug, got %d", rw.Code)
	}
	rw = do(h, http.MethodPost, "/api/v1/experts/expert-1/events", `{"slug":"long","name":"Too long","duration_minutes":600}`)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for long event, got %d", rw.Code)
	}

	rw = do(h, http.MethodGet, "/api/v1/experts/expert-1/events", "")
	var events []schedulingv1.Event
	if err := json.Unmarshal(rw.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || !events[0].Active || events[0].DurationMinutes != 30 {
		t.Fatalf("unexpected events %+v", events)
	}

	rw = do(h, http.MethodGet, "/api/v1/experts/nobody/events", "")
	if strings.TrimSpace(rw.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", rw.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(newFakeStore())
	rw := do(h, http.MethodDelete, "/api/v1/experts/expert-1/schedule", "")
	if rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rw.Code)
	}
}
