package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/assignyard/internal/config"
	"github.com/zulandar/assignyard/internal/db"
	"github.com/zulandar/assignyard/internal/notify"
	"github.com/zulandar/assignyard/internal/session"
	"github.com/zulandar/assignyard/internal/store"
)

const managedID = "cmp-acme"

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return nil
}

type testEnv struct {
	router   *gin.Engine
	store    *store.Store
	sessions *session.Registry
	notes    *recordingNotifier
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if err := db.Seed(gdb, managedID); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	env := &testEnv{
		store:    store.New(gdb),
		sessions: session.NewRegistry(time.Minute),
		notes:    &recordingNotifier{},
	}
	env.router, err = NewRouter(StartOpts{
		Store:            env.store,
		Sessions:         env.sessions,
		Notifier:         env.notes,
		ManagedCompanyID: managedID,
		AdvancedPlanning: true,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

type testField struct {
	Value    any      `json:"value"`
	Editable bool     `json:"editable"`
	Errors   []string `json:"errors"`
}

type testRow struct {
	ID               *string   `json:"id"`
	PlannedDate      testField `json:"plannedDate"`
	PlannedStartTime testField `json:"plannedStartTime"`
	PlannedEndTime   testField `json:"plannedEndTime"`
	PlannedWorkload  testField `json:"plannedWorkload"`
	Status           testField `json:"status"`
	Resource         testField `json:"resource"`
}

type testView struct {
	Session     string    `json:"session"`
	Columns     []string  `json:"columns"`
	CanAddNew   bool      `json:"can_add_new"`
	Invalid     bool      `json:"invalid"`
	Overlapping bool      `json:"overlapping"`
	Deleted     []string  `json:"deleted"`
	Rows        []testRow `json:"rows"`
	Error       string    `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) testView {
	t.Helper()
	var v testView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (env *testEnv) open(t *testing.T, intervention string) testView {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/interventions/"+intervention+"/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("open status = %d, body %s", w.Code, w.Body.String())
	}
	return decode(t, w)
}

func TestNewRouter_RequiresStore(t *testing.T) {
	_, err := NewRouter(StartOpts{})
	if err == nil {
		t.Fatal("expected error for nil store")
	}
	if !strings.Contains(err.Error(), "store is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "store is required")
	}
}

func TestStart_RequiresStore(t *testing.T) {
	if err := Start(context.Background(), StartOpts{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestOpenSession(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	if !strings.HasPrefix(v.Session, "ses-") {
		t.Errorf("session = %q, want ses- prefix", v.Session)
	}
	if len(v.Rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(v.Rows))
	}
	if got := v.Rows[0].PlannedStartTime.Value; got != "08:00" {
		t.Errorf("plannedStartTime = %v, want 08:00", got)
	}
	if got := v.Rows[0].Status.Value; got != "Planned" {
		t.Errorf("status = %v, want Planned", got)
	}
	want := []string{"date_resource", "time_range", "status", "action"}
	if strings.Join(v.Columns, ",") != strings.Join(want, ",") {
		t.Errorf("columns = %v, want %v", v.Columns, want)
	}
	if env.sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", env.sessions.Len())
	}
}

func TestOpenSession_NotFound(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodPost, "/api/interventions/int-missing/sessions", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestEdit_ReconcilesWorkload(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	w := env.do(t, http.MethodPatch, "/api/sessions/"+v.Session+"/rows/0",
		map[string]any{"field": "plannedEndTime", "value": "14:30"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	got := decode(t, w).Rows[0]
	if got.PlannedWorkload.Value != 6.5 {
		t.Errorf("plannedWorkload = %v, want 6.5", got.PlannedWorkload.Value)
	}

	w = env.do(t, http.MethodPatch, "/api/sessions/"+v.Session+"/rows/0",
		map[string]any{"field": "plannedWorkload", "value": 2})
	got = decode(t, w).Rows[0]
	if got.PlannedEndTime.Value != "10:00" {
		t.Errorf("plannedEndTime = %v, want 10:00", got.PlannedEndTime.Value)
	}
}

func TestEdit_Errors(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	base := "/api/sessions/" + v.Session

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"bad time", base + "/rows/0", map[string]any{"field": "plannedStartTime", "value": "25:99"}, http.StatusBadRequest},
		{"unknown field", base + "/rows/0", map[string]any{"field": "colour", "value": "red"}, http.StatusBadRequest},
		{"erase status", base + "/rows/0", map[string]any{"field": "status", "value": nil}, http.StatusBadRequest},
		{"bad index", base + "/rows/zero", map[string]any{"field": "plannedWorkload", "value": 1}, http.StatusBadRequest},
		{"out of range", base + "/rows/4", map[string]any{"field": "plannedWorkload", "value": 1}, http.StatusNotFound},
		{"unknown session", "/api/sessions/ses-nope/rows/0", map[string]any{"field": "plannedWorkload", "value": 1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPatch, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if decode(t, w).Error == "" {
				t.Error("error body missing")
			}
		})
	}
}

func TestEdit_RejectsNonFiniteWorkload(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	base := "/api/sessions/" + v.Session

	for _, value := range []string{"NaN", "Inf", "+Inf", "-Inf"} {
		t.Run(value, func(t *testing.T) {
			w := env.do(t, http.MethodPatch, base+"/rows/0",
				map[string]any{"field": "plannedWorkload", "value": value})
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}

	w := env.do(t, http.MethodGet, base, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	got := decode(t, w)
	if len(got.Rows) != 1 || got.Rows[0].PlannedWorkload.Value != 4.0 {
		t.Errorf("rows = %+v, want untouched 4h workload", got.Rows)
	}
}

func TestEdit_ErasePlannedDate(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	w := env.do(t, http.MethodPatch, "/api/sessions/"+v.Session+"/rows/0",
		map[string]any{"field": "plannedDate", "value": nil})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	row := decode(t, w).Rows[0]
	if row.PlannedDate.Value != nil {
		t.Errorf("plannedDate = %v, want nil", row.PlannedDate.Value)
	}
	if row.Status.Value != "Draft" || row.Status.Editable {
		t.Errorf("status = %+v, want locked Draft", row.Status)
	}
}

func TestAddRow_FlagsOverlap(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	base := "/api/sessions/" + v.Session

	w := env.do(t, http.MethodPost, base+"/rows/0/after", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := len(decode(t, w).Rows); got != 2 {
		t.Fatalf("len(rows) = %d, want 2", got)
	}

	date := decode(t, env.do(t, http.MethodGet, base, nil)).Rows[0].PlannedDate.Value
	w = env.do(t, http.MethodPatch, base+"/rows/1", map[string]any{"field": "plannedDate", "value": date})
	view := decode(t, w)
	if !view.Overlapping || !view.Invalid {
		t.Errorf("overlapping/invalid = %v/%v, want true/true", view.Overlapping, view.Invalid)
	}
	if len(view.Rows[1].PlannedDate.Errors) != 1 || view.Rows[1].PlannedDate.Errors[0] != "overlapping" {
		t.Errorf("errors = %v, want [overlapping]", view.Rows[1].PlannedDate.Errors)
	}

	w = env.do(t, http.MethodPost, base+"/save", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("save status = %d, want 422", w.Code)
	}
}

func TestDeleteRow_AndSave(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	base := "/api/sessions/" + v.Session

	w := env.do(t, http.MethodDelete, base+"/rows/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	view := decode(t, w)
	if len(view.Rows) != 1 || view.Rows[0].ID != nil {
		t.Errorf("rows = %+v, want one blank row", view.Rows)
	}
	if len(view.Deleted) != 1 {
		t.Errorf("deleted = %v, want one id", view.Deleted)
	}

	w = env.do(t, http.MethodPost, base+"/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", w.Code, w.Body.String())
	}
	var res struct {
		Saved   int `json:"saved"`
		Deleted int `json:"deleted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Saved != 1 || res.Deleted != 1 {
		t.Errorf("result = %+v, want 1 saved 1 deleted", res)
	}
	if env.sessions.Len() != 0 {
		t.Errorf("sessions = %d, want 0 after save", env.sessions.Len())
	}
	if len(env.notes.got) != 1 || env.notes.got[0].Kind != notify.KindSaved {
		t.Errorf("notifications = %+v, want one saved event", env.notes.got)
	}
}

func TestSave_ClosesSessionForLateEdits(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	base := "/api/sessions/" + v.Session

	if w := env.do(t, http.MethodPost, base+"/save", nil); w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", w.Code, w.Body.String())
	}
	w := env.do(t, http.MethodPatch, base+"/rows/0",
		map[string]any{"field": "plannedWorkload", "value": 2})
	if w.Code != http.StatusNotFound {
		t.Errorf("edit after save status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodPost, base+"/save", nil); w.Code != http.StatusNotFound {
		t.Errorf("second save status = %d, want 404", w.Code)
	}
}

func TestSave_ConcurrentSavesPersistOnce(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	base := "/api/sessions/" + v.Session

	const n = 5
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, base+"/save", nil)
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusNotFound:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if ok != 1 {
		t.Errorf("successful saves = %d, want 1 (codes %v)", ok, codes)
	}
	if len(env.notes.got) != 1 {
		t.Errorf("notifications = %d, want 1", len(env.notes.got))
	}
}

func TestDeleteRow_CancelsInProgress(t *testing.T) {
	env := setup(t)
	// int-3 sits on a closed job; reopen it to allow editing.
	if err := env.store.DB().Exec("UPDATE interventions SET job_id = ? WHERE id = ?", "job-open", "int-3").Error; err != nil {
		t.Fatal(err)
	}
	v := env.open(t, "int-3")
	w := env.do(t, http.MethodDelete, "/api/sessions/"+v.Session+"/rows/0", nil)
	view := decode(t, w)
	if len(view.Rows) != 1 || view.Rows[0].Status.Value != "Cancelled" {
		t.Errorf("rows = %+v, want one Cancelled row", view.Rows)
	}
}

func TestReadOnlyJob(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-3")
	if v.CanAddNew {
		t.Error("can_add_new = true, want false on a closed job")
	}
	w := env.do(t, http.MethodPatch, "/api/sessions/"+v.Session+"/rows/0",
		map[string]any{"field": "plannedWorkload", "value": 1})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/sessions/"+v.Session+"/rows/0/after", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("add status = %d, want 409", w.Code)
	}
}

func TestChangeCompany(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	base := "/api/sessions/" + v.Session

	w := env.do(t, http.MethodPut, base+"/company", map[string]string{"id": "cmp-external"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	view := decode(t, w)
	if view.Rows[0].Resource.Value != nil {
		t.Errorf("resource = %v, want cleared", view.Rows[0].Resource.Value)
	}
	if len(view.Columns) != 3 {
		t.Errorf("columns = %v, want status column hidden", view.Columns)
	}

	w = env.do(t, http.MethodPut, base+"/company", map[string]string{"id": managedID})
	view = decode(t, w)
	res, _ := view.Rows[0].Resource.Value.(map[string]any)
	if res["id"] != "res-ada" {
		t.Errorf("resource = %v, want default intervener res-ada", view.Rows[0].Resource.Value)
	}

	w = env.do(t, http.MethodPut, base+"/company", map[string]string{"id": "cmp-none"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHistory(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	w := env.do(t, http.MethodPost, "/api/sessions/"+v.Session+"/rows/0/history", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body struct {
		Events []struct {
			Kind string `json:"kind"`
		} `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Events) != 1 || body.Events[0].Kind != "history_requested" {
		t.Errorf("events = %+v, want one history_requested", body.Events)
	}
	if len(env.notes.got) != 1 || env.notes.got[0].Kind != notify.KindHistoryRequested {
		t.Errorf("notifications = %+v", env.notes.got)
	}
}

func TestDiscard(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	if w := env.do(t, http.MethodDelete, "/api/sessions/"+v.Session, nil); w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/sessions/"+v.Session, nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 after discard", w.Code)
	}
}

func TestResources(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodGet, "/api/resources?company="+managedID+"&q=by&limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var page struct {
		Count int64 `json:"count"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Count != 1 || page.Items[0].ID != "res-ada" {
		t.Errorf("page = %+v, want only res-ada", page)
	}

	if w := env.do(t, http.MethodGet, "/api/resources", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing company status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/resources?company=x&offset=-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("negative offset status = %d, want 400", w.Code)
	}
}

func TestInterveners(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	w := env.do(t, http.MethodGet, "/api/sessions/"+v.Session+"/interveners", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var page struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	// Ada, Bob and Cyd work for the managed company on the project's site.
	if page.Count != 3 {
		t.Errorf("count = %d, want 3", page.Count)
	}
}

func TestMetrics(t *testing.T) {
	env := setup(t)
	v := env.open(t, "int-1")
	env.do(t, http.MethodPatch, "/api/sessions/"+v.Session+"/rows/0",
		map[string]any{"field": "plannedWorkload", "value": 3})

	w := env.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`assignyard_edits_total{field="plannedWorkload",outcome="ok"} 1`,
		"assignyard_sessions_open 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
