package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/database"
	"github.com/lysyi3m/critique-desk/app/display"
	"github.com/lysyi3m/critique-desk/app/feed"
	"github.com/lysyi3m/critique-desk/app/notify"
	"github.com/lysyi3m/critique-desk/app/tasks"
)

var testKeys = Keys{Edit: "edit-key", Manage: "manage-key"}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []tasks.TaskInterface
}

func (f *fakeScheduler) Start() {}
func (f *fakeScheduler) Stop() {}

func (f *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

type chanNotifier chan notify.Notice

func (c chanNotifier) Notify(_ context.Context, n notify.Notice) error {
	c <- n
	return nil
}

// fakeIngester merges a fixed batch of feed items, the way the real
// ingester does once the feed is fetched.
type fakeIngester struct {
	store *catalog.Store
	items []feed.Item
	err   error
}

func (f *fakeIngester) Run(context.Context) (*feed.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	var res feed.Result
	err := f.store.Do(func(tx *catalog.Tx) error {
		res = feed.Merge(tx, f.items, time.Now())
		return nil
	})
	return &res, err
}

type fakePreviews struct {
	previews map[int64]*database.Preview
}

func (f *fakePreviews) GetPreview(_ context.Context, id int64) (*database.Preview, error) {
	return f.previews[id], nil
}

func (f *fakePreviews) GetEntriesForExtraction(context.Context, int) ([]database.EntryForExtraction, error) {
	return nil, nil
}

func (f *fakePreviews) SaveExtracted(context.Context, int64, string, time.Time) error { return nil }

func (f *fakePreviews) SaveFailure(context.Context, int64, time.Time, string) error { return nil }

type fakeEntries struct{}

func (fakeEntries) LoadAll(context.Context) ([]catalog.Record, error) { return nil, nil }
func (fakeEntries) Save(context.Context, []*catalog.Entry, []int64) error { return nil }
func (fakeEntries) Count(context.Context) (int, error) { return 0, nil }

type fakeSettings struct{}

func (fakeSettings) GetTime(context.Context, string) (*time.Time, error) { return nil, nil }
func (fakeSettings) SetTime(context.Context, string, time.Time) error { return nil }

type testEnv struct {
	router    *gin.Engine
	store     *catalog.Store
	scheduler *fakeScheduler
	notices   chanNotifier
	ingester  *fakeIngester
}

func threadURL(id string) string {
	return "http://forum.example.org/forum/t-" + id + "/thread"
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	c := catalog.NewController(nil)
	mk := func(id, name, author string, typ catalog.Type, status catalog.Status) *catalog.Entry {
		e, err := catalog.NewEntry(name, threadURL(id), author, typ, catalog.StatusOpen, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		c.SetStatus(e, status)
		e.Modified = false
		return e
	}

	store := catalog.NewStore(5)
	store.Load([]*catalog.Entry{
		mk("1", "La porte rouge", "Alice Smith", catalog.TypeStory, catalog.StatusOpen),
		mk("2", "Porte bleue", "Alice Jones", catalog.TypeReport, catalog.StatusPendingReview),
		mk("3", "Le rapport", "Bob", catalog.TypeReport, catalog.StatusRejected),
	}, time.Time{})

	published := time.Now().Add(-time.Minute)
	env := &testEnv{
		store:     store,
		scheduler: &fakeScheduler{},
		notices:   make(chanNotifier, 64),
		ingester: &fakeIngester{store: store, items: []feed.Item{{
			Title:       "[Conte] Nuit blanche",
			Link:        threadURL("77"),
			Author:      "Zoe",
			PublishedAt: &published,
		}}},
	}

	extractedAt := time.Now()
	handler := NewHandler(Deps{
		Store:      store,
		Controller: c,
		Rules:      display.NewRules(""),
		Generator:  feed.NewGenerator("http://localhost:8080", "test"),
		Ingester:   env.ingester,
		Entries:    fakeEntries{},
		Settings:   fakeSettings{},
		Previews: &fakePreviews{previews: map[int64]*database.Preview{
			1: {EntryID: 1, Excerpt: "Il était une fois", Status: database.PreviewStatusSuccess, ExtractedAt: &extractedAt},
		}},
		Scheduler: env.scheduler,
		Notifier:  env.notices,
		Version:   "test",
	})
	env.router = NewServer(handler, testKeys)
	return env
}

type request struct {
	method  string
	path    string
	body    any
	key     string
	actorID string
	actor   string
}

func (env *testEnv) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.key != "" {
		req.Header.Set("X-API-Key", r.key)
	}
	if r.actorID != "" {
		req.Header.Set("X-Actor-ID", r.actorID)
	}
	if r.actor != "" {
		req.Header.Set("X-Actor-Name", r.actor)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (env *testEnv) notice(t *testing.T) notify.Notice {
	t.Helper()
	select {
	case n := <-env.notices:
		return n
	case <-time.After(time.Second):
		t.Fatal("no notice sent")
		return notify.Notice{}
	}
}

func TestAuthLevels(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/api/tags"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/undo"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/undo", key: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/maintenance/cleanup", key: testKeys.Edit})
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/undo", nil)
	req.Header.Set("Authorization", "Bearer "+testKeys.Manage)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code, "manage includes edit; nothing to undo yet")
}

func TestReadKeyProtectsReads(t *testing.T) {
	assert.Equal(t, LevelNone, Keys{}.LevelOf(""))
	keys := Keys{Read: "r", Edit: "e", Manage: "m"}
	assert.Equal(t, LevelRead, keys.LevelOf("r"))
	assert.Equal(t, LevelEdit, keys.LevelOf("e"))
	assert.Equal(t, LevelManage, keys.LevelOf("m"))
	assert.Equal(t, LevelNone, keys.LevelOf("x"))
}

func TestInvalidActorHeader(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, request{method: http.MethodGet, path: "/api/tags", actorID: "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchEntries(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/api/entries"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries?q=porte&statuses=open"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[struct {
		Entries []catalog.EntryView `json:"entries"`
		Total   int                 `json:"total"`
	}](t, w)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, int64(1), res.Entries[0].ID)

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries?types=report&authors=bob,jones"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode[map[string]any](t, w)["total"])
}

func TestSearchReportsEveryProblem(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/api/entries?statuses=frozen&authors=alice"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	res := decode[struct {
		Problems []ProblemView `json:"problems"`
	}](t, w)
	require.Len(t, res.Problems, 2)
	assert.Equal(t, "status", res.Problems[0].Field)
	assert.Equal(t, "author", res.Problems[1].Field)
	assert.Equal(t, []string{"Alice Jones", "Alice Smith"}, res.Problems[1].Matches)
}

func TestLookupEntry(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/api/entries/lookup?q=rouge"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[catalog.EntryView](t, w).ID)

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries/lookup?q=porte"})
	require.Equal(t, http.StatusConflict, w.Code)
	res := decode[struct {
		Candidates []catalog.EntryView `json:"candidates"`
	}](t, w)
	assert.Len(t, res.Candidates, 2)

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries/lookup?q=absent"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetEntryDetail(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/api/entries/1"})
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[EntryDetailResponse](t, w)
	assert.Equal(t, "La porte rouge", res.Entry.Name)
	assert.Equal(t, []string{"claim", "critique", "release"}, res.Entry.Actions)
	assert.Equal(t, []string{"open"}, res.Channels)
	require.NotNil(t, res.Preview)
	assert.Equal(t, "Il était une fois", res.Preview.Excerpt)

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries/99"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries/abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRandomAndOldest(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/api/entries/random"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[catalog.EntryView](t, w).ID)

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries/oldest?type=idea"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries/oldest?type=poem"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddEntry(t *testing.T) {
	env := newTestEnv(t)
	add := func(body AddEntryRequest) *httptest.ResponseRecorder {
		return env.do(t, request{method: http.MethodPost, path: "/api/entries", body: body, key: testKeys.Edit, actor: "Dana"})
	}

	w := add(AddEntryRequest{Name: "Nouveau", URL: threadURL("10"), Author: "Eve", Type: "idea"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[catalog.EntryView](t, w)
	assert.Equal(t, int64(10), view.ID)
	assert.Equal(t, "open", view.Status)

	n := env.notice(t)
	assert.Equal(t, "Dana", n.Actor)
	assert.Equal(t, "add", n.Action)
	assert.Equal(t, int64(10), n.EntryID)
	assert.Equal(t, 1, env.scheduler.count())

	w = add(AddEntryRequest{Name: "Again", URL: threadURL("10"), Author: "Eve", Type: "idea"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = add(AddEntryRequest{Name: "Bad", URL: "http://forum.example.org/forum/c-10/", Author: "Eve", Type: "idea"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = add(AddEntryRequest{Name: "Bad", URL: threadURL("11"), Author: "Eve", Type: "poem"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = add(AddEntryRequest{Name: "Missing author", URL: threadURL("12"), Type: "idea"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClaimReleaseCycle(t *testing.T) {
	env := newTestEnv(t)
	claim := func(body ClaimRequest, actorID string) *httptest.ResponseRecorder {
		return env.do(t, request{method: http.MethodPost, path: "/api/entries/1/claim", body: body, key: testKeys.Edit, actorID: actorID, actor: "Carol"})
	}

	w := claim(ClaimRequest{Kind: "exclusive"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = claim(ClaimRequest{Kind: "sometimes"}, "7")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = claim(ClaimRequest{Kind: "exclusive"}, "7")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[catalog.EntryView](t, w)
	assert.Equal(t, "open_claimed", view.Status)
	require.Len(t, view.Reservations, 1)
	assert.Equal(t, "Carol", view.Reservations[0].Name)

	w = claim(ClaimRequest{Kind: "collab", Name: "Proxy Pat"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[catalog.EntryView](t, w)
	require.Len(t, view.Reservations, 2)
	assert.True(t, view.Reservations[1].Proxy)

	release := func(body any, actorID string) *httptest.ResponseRecorder {
		return env.do(t, request{method: http.MethodPost, path: "/api/entries/1/release", body: body, key: testKeys.Edit, actorID: actorID})
	}

	w = release(nil, "7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "open_claimed", decode[catalog.EntryView](t, w).Status)

	w = release(ReleaseRequest{Name: "proxy pat"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "open", decode[catalog.EntryView](t, w).Status)

	w = release(nil, "7")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = claim(ClaimRequest{Kind: "simple"}, "7")
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, request{method: http.MethodPost, path: "/api/entries/2/claim", body: ClaimRequest{Kind: "simple"}, key: testKeys.Edit, actorID: "7"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestApplyAction(t *testing.T) {
	env := newTestEnv(t)
	act := func(id, action string) *httptest.ResponseRecorder {
		return env.do(t, request{method: http.MethodPost, path: "/api/entries/" + id + "/actions/" + action, key: testKeys.Edit, actorID: "7"})
	}

	w := act("1", "critique")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending_review", decode[catalog.EntryView](t, w).Status)

	assert.Equal(t, http.StatusConflict, act("1", "critique").Code)
	assert.Equal(t, http.StatusBadRequest, act("1", "dance").Code)
	assert.Equal(t, http.StatusBadRequest, act("1", "claim").Code)
	assert.Equal(t, http.StatusBadRequest, act("1", "accept").Code)

	w = act("1", "up")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "open", decode[catalog.EntryView](t, w).Status)

	w = act("3", "reopen")
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAcceptEntry(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodPost, path: "/api/entries/2/accept", key: testKeys.Edit})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/entries/2/accept", key: testKeys.Manage})
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[catalog.EntryView](t, w)
	assert.Equal(t, "accepted", view.Status)
	assert.Equal(t, []string{"publish"}, view.Actions)
}

func TestUpdateEntry(t *testing.T) {
	env := newTestEnv(t)

	status, name := "paused", "  Porte verte "
	w := env.do(t, request{method: http.MethodPatch, path: "/api/entries/2", body: UpdateEntryRequest{Status: &status, Name: &name}, key: testKeys.Edit})
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[catalog.EntryView](t, w)
	assert.Equal(t, "paused", view.Status)
	assert.Equal(t, "Porte verte", view.Name)

	w = env.do(t, request{method: http.MethodPatch, path: "/api/entries/2", body: UpdateEntryRequest{}, key: testKeys.Edit})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad := "frozen"
	w = env.do(t, request{method: http.MethodPatch, path: "/api/entries/2", body: UpdateEntryRequest{Status: &bad}, key: testKeys.Edit})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTags(t *testing.T) {
	env := newTestEnv(t)
	addTag := func(tag string) *httptest.ResponseRecorder {
		return env.do(t, request{method: http.MethodPost, path: "/api/entries/1/tags", body: TagRequest{Tag: tag}, key: testKeys.Edit})
	}

	require.Equal(t, http.StatusOK, addTag("Horreur").Code)
	require.Equal(t, http.StatusOK, addTag("court").Code)
	assert.Equal(t, http.StatusConflict, addTag("HORREUR").Code)
	assert.Equal(t, http.StatusBadRequest, addTag("  ").Code)

	w := env.do(t, request{method: http.MethodGet, path: "/api/tags"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[struct {
		Tags []catalog.TagCount `json:"tags"`
	}](t, w)
	assert.Equal(t, []catalog.TagCount{{Tag: "court", Count: 1}, {Tag: "horreur", Count: 1}}, res.Tags)

	w = env.do(t, request{method: http.MethodDelete, path: "/api/entries/1/tags?q=hor", key: testKeys.Edit})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"court"}, decode[catalog.EntryView](t, w).Tags)

	w = env.do(t, request{method: http.MethodDelete, path: "/api/entries/1/tags?q=zzz", key: testKeys.Edit})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenameAuthor(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodPost, path: "/api/authors/rename", body: RenameAuthorRequest{From: "alice", To: "A."}, key: testKeys.Edit})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/authors/rename", body: RenameAuthorRequest{From: "   ", To: "X"}, key: testKeys.Edit})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Empty author name", decode[map[string]any](t, w)["error"])

	w = env.do(t, request{method: http.MethodPost, path: "/api/authors/rename", body: RenameAuthorRequest{From: "bob", To: "Robert"}, key: testKeys.Edit})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[struct {
		From    string  `json:"from"`
		Renamed []int64 `json:"renamed"`
	}](t, w)
	assert.Equal(t, "Bob", res.From)
	assert.Equal(t, []int64{3}, res.Renamed)

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries/3"})
	assert.Equal(t, "Robert", decode[EntryDetailResponse](t, w).Entry.Author)
}

func TestDeleteAndUndo(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodDelete, path: "/api/entries/1", key: testKeys.Manage})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, request{method: http.MethodGet, path: "/api/entries/1"}).Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/undo", key: testKeys.Edit})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{float64(1)}, decode[map[string]any](t, w)["restored"])
	assert.Equal(t, http.StatusOK, env.do(t, request{method: http.MethodGet, path: "/api/entries/1"}).Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/undo", key: testKeys.Edit})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMaintenance(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodPost, path: "/api/maintenance/cleanup", key: testKeys.Manage})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{float64(3)}, decode[map[string]any](t, w)["removed"])

	w = env.do(t, request{method: http.MethodPost, path: "/api/maintenance/no-response", body: NoResponseRequest{Before: "someday"}, key: testKeys.Manage})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/maintenance/no-response", body: NoResponseRequest{Before: "2999-01-01"}, key: testKeys.Manage})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{float64(1)}, decode[map[string]any](t, w)["archived"])

	w = env.do(t, request{method: http.MethodGet, path: "/api/entries/1"})
	assert.Equal(t, "no_response", decode[EntryDetailResponse](t, w).Entry.Status)

	w = env.do(t, request{method: http.MethodPost, path: "/api/undo", key: testKeys.Edit})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, request{method: http.MethodGet, path: "/api/entries/1"})
	assert.Equal(t, "open", decode[EntryDetailResponse](t, w).Entry.Status)
}

func TestThreadCreatedHook(t *testing.T) {
	env := newTestEnv(t)
	hook := func(text string) *httptest.ResponseRecorder {
		return env.do(t, request{method: http.MethodPost, path: "/api/threads", body: ThreadRequest{Text: text}, key: testKeys.Edit})
	}

	assert.Equal(t, http.StatusBadRequest, hook("nothing to see").Code)

	w := hook("New thread: " + threadURL("77") + " enjoy")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Entry catalog.EntryView `json:"entry"`
		Added bool              `json:"added"`
	}](t, w)
	assert.Equal(t, "Nuit blanche", res.Entry.Name)
	assert.Equal(t, "story", res.Entry.Type)
	assert.True(t, res.Added)
	assert.Equal(t, 1, env.scheduler.count())

	w = hook("see " + threadURL("500"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshFeedError(t *testing.T) {
	env := newTestEnv(t)
	env.ingester.err = assert.AnError

	w := env.do(t, request{method: http.MethodPost, path: "/api/feed/refresh", key: testKeys.Manage})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestChannels(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/api/channels"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[struct {
		Channels []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"channels"`
	}](t, w)
	require.Len(t, res.Channels, 3)
	assert.Equal(t, "open", res.Channels[0].Name)
	assert.Equal(t, 1, res.Channels[0].Count)

	w = env.do(t, request{method: http.MethodGet, path: "/api/channels/nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/channels/open/feed.xml"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Feed-Items"))
	assert.Contains(t, w.Body.String(), "La porte rouge")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/health"})
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, float64(3), health["entries"])
	assert.Equal(t, float64(3), health["channels"])

	w = env.do(t, request{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, w.Code)
}
