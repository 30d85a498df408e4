package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/tvlineup/internal/cache"
	"github.com/voyagen/tvlineup/internal/config"
	"github.com/voyagen/tvlineup/internal/lookup"
	"github.com/voyagen/tvlineup/internal/models"
	"github.com/voyagen/tvlineup/internal/reconcile"
	"github.com/voyagen/tvlineup/internal/store"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) { return nil, cache.ErrLocked }

func newTestServer(t *testing.T, locker reconcile.Locker) (*Server, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	svc := reconcile.NewService(s, nil, locker, reconcile.Defaults{PackageName: "com.example.tv"})
	srv := New(s, svc, nil, &config.Config{ServerPort: "0", UserAgent: "test", Timeout: time.Second})
	srv.now = func() time.Time { return t0.Add(30 * time.Minute) }
	return srv, s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSyncAndRead(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/inputs/tuner/sync",
		`{"channels":[{"original_network_id":1,"display_number":"1","display_name":"One"},{"original_network_id":2,"display_number":"2","display_name":"Two"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[reconcile.Result](t, rec)
	assert.NotEmpty(t, res.PassID)
	assert.Len(t, res.Inserted, 2)

	rec = do(t, h, http.MethodPost, "/api/inputs/tuner/sync",
		`{"channels":[{"original_network_id":2,"display_number":"2","display_name":"Two HD"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res2 := decode[reconcile.Result](t, rec)
	assert.Equal(t, []int64{res.Inserted[1]}, res2.Updated)
	assert.Equal(t, []int64{res.Inserted[0]}, res2.Deleted)

	rec = do(t, h, http.MethodGet, "/api/channels?input_id=tuner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Channels []models.Channel `json:"channels"`
		Total    int              `json:"total"`
	}](t, rec)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Two HD", list.Channels[0].DisplayName)
	assert.Equal(t, "com.example.tv", list.Channels[0].PackageName)

	rec = do(t, h, http.MethodGet, "/api/channels?input_id=other", "")
	assert.Equal(t, 0, decode[struct{ Total int }](t, rec).Total)
}

func TestSyncErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/inputs/tuner/sync", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/inputs/tuner/sync",
		`{"channels":[{"original_network_id":1,"display_number":"1"},{"original_network_id":1,"display_number":"2"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	locked, _ := newTestServer(t, busyLocker{})
	rec = do(t, locked.Handler(), http.MethodPost, "/api/inputs/tuner/sync", `{"channels":[]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, http.StatusConflict, decode[APIError](t, rec).Status)
}

func TestIngest(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test", r.UserAgent())
		_, _ = w.Write([]byte("channels:\n  - original_network_id: 5\n    display_number: \"5\"\n    programs:\n      - title: Film\n        start: \"2026-03-01T18:00:00Z\"\n        end: \"2026-03-01T20:00:00Z\"\n"))
	}))
	defer feedSrv.Close()

	srv, s := newTestServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/inputs/tuner/ingest", `{"url":"`+feedSrv.URL+`/lineup.yaml"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep struct {
		Inserted []int64 `json:"inserted"`
		Programs int     `json:"programs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	require.Len(t, rep.Inserted, 1)
	assert.Equal(t, 1, rep.Programs)
	assert.Len(t, lookup.ListPrograms(context.Background(), s, rep.Inserted[0]), 1)

	rec = do(t, h, http.MethodPost, "/api/inputs/tuner/ingest", `{"url":"ftp://example.com/x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/inputs/tuner/ingest", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func seedChannel(t *testing.T, s *store.Memory) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := s.InsertChannel(ctx, &models.Channel{InputID: "tuner", OriginalNetworkID: 1, DisplayNumber: "1", DisplayName: "One"})
	require.NoError(t, err)
	require.NoError(t, s.ReplacePrograms(ctx, id, []models.Program{
		{Title: "second", StartTime: t0.Add(time.Hour), EndTime: t0.Add(2 * time.Hour)},
		{Title: "first", StartTime: t0, EndTime: t0.Add(time.Hour)},
	}))
	return id
}

func TestChannelReads(t *testing.T) {
	srv, s := newTestServer(t, nil)
	h := srv.Handler()
	id := seedChannel(t, s)
	base := "/api/channels/" + itoa(id)

	rec := do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "One", decode[models.Channel](t, rec).DisplayName)

	rec = do(t, h, http.MethodGet, "/api/channels/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/channels/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, base+"/programs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	programs := decode[[]models.Program](t, rec)
	require.Len(t, programs, 2)
	assert.Equal(t, "first", programs[0].Title)

	rec = do(t, h, http.MethodGet, "/api/channels/999/programs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestNowPlaying(t *testing.T) {
	srv, s := newTestServer(t, nil)
	h := srv.Handler()
	base := "/api/channels/" + itoa(seedChannel(t, s)) + "/now"

	rec := do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	sched := decode[lookup.Schedule](t, rec)
	require.NotNil(t, sched.Current)
	assert.Equal(t, "first", sched.Current.Title)
	require.NotNil(t, sched.Next)
	assert.Equal(t, "second", sched.Next.Title)

	rec = do(t, h, http.MethodGet, base+"?at=2026-03-01T19:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "second", decode[lookup.Schedule](t, rec).Current.Title)

	rec = do(t, h, http.MethodGet, base+"?at=2026-03-01T23:00:00Z", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, base+"?at=tonight", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChannelLogo(t *testing.T) {
	srv, s := newTestServer(t, nil)
	h := srv.Handler()
	id := seedChannel(t, s)

	rec := do(t, h, http.MethodGet, "/api/channels/"+itoa(id)+"/logo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, s.PutChannelLogo(context.Background(), id, []byte("\x89PNG\r\n\x1a\n"), "image/png"))
	rec = do(t, h, http.MethodGet, "/api/channels/"+itoa(id)+"/logo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG\r\n\x1a\n", rec.Body.String())
}

func TestDocs(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/api/docs/openapi.yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/inputs/{input}/sync")

	rec = do(t, srv.Handler(), http.MethodOptions, "/api/channels", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
