package megaplan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workguard/internal/httpx"
)

type fakeAPI struct {
	t *testing.T

	listPages     func(cursor string) (tasks []string, hasMore bool)
	listCalls     atomic.Int32
	taskCalls     atomic.Int32
	employeeCalls atomic.Int32
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case path == "/api/v3/task":
			f.listCalls.Add(1)
			raw, err := url.QueryUnescape(r.URL.RawQuery)
			require.NoError(f.t, err)
			var q listQuery
			require.NoError(f.t, json.Unmarshal([]byte(raw), &q))
			cursor := ""
			if q.PageAfter != nil {
				require.Equal(f.t, "Task", q.PageAfter.ContentType)
				cursor = q.PageAfter.ID
			}
			tasks, hasMore := f.listPages(cursor)
			fmt.Fprintf(w, `{"meta":{"pagination":{"hasMoreNext":%t}},"data":[%s]}`,
				hasMore, strings.Join(tasks, ","))

		case strings.HasSuffix(path, "/comments"):
			fmt.Fprint(w, `{"meta":{"pagination":{"hasMoreNext":false}},"data":[]}`)

		case strings.HasPrefix(path, "/api/v3/task/"):
			f.taskCalls.Add(1)
			id := strings.TrimPrefix(path, "/api/v3/task/")
			fmt.Fprintf(w, `{"data":%s}`, taskJSON(id))

		case strings.HasPrefix(path, "/api/v3/employee/"):
			f.employeeCalls.Add(1)
			id := strings.TrimPrefix(path, "/api/v3/employee/")
			fmt.Fprintf(w, `{"data":{"id":%q,"name":"Employee %s","position":"Engineer",
				"contactInfo":[{"type":"email","value":"user%s@example.com"}]}}`, id, id, id)

		default:
			http.NotFound(w, r)
		}
	})
}

func taskJSON(id string, subtaskIDs ...string) string {
	refs := make([]string, len(subtaskIDs))
	for i, s := range subtaskIDs {
		refs[i] = fmt.Sprintf(`{"id":%q}`, s)
	}
	return fmt.Sprintf(`{"id":%q,"name":"Task %s","status":"open","subTasks":[%s],
		"timeCreated":{"value":"2024-01-02T10:00:00Z"},
		"activity":{"value":"2024-01-02T12:00:00Z"}}`, id, id, strings.Join(refs, ","))
}

func newTestService(t *testing.T, baseURL string) *Service {
	t.Helper()
	client := httpx.New(httpx.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, Timeout: 2 * time.Second}, zerolog.Nop())
	svc, err := NewService(Config{
		BaseURL:           baseURL,
		APIKey:            "test-key",
		EmailDomain:       "example.com",
		Timezone:          "UTC",
		PageSize:          100,
		SubtaskRatePerSec: 1000,
	}, client, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(svc.Stop)
	return svc
}

func TestFetchAllTasksWalksEveryPage(t *testing.T) {
	api := &fakeAPI{t: t}
	api.listPages = func(cursor string) ([]string, bool) {
		switch cursor {
		case "":
			return []string{taskJSON("t1"), taskJSON("t2")}, true
		case "t2":
			return []string{taskJSON("t3"), taskJSON("t4")}, true
		case "t4":
			return []string{taskJSON("t5")}, false
		default:
			t.Fatalf("unexpected cursor %q", cursor)
			return nil, false
		}
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	tasks, err := svc.FetchAllTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 5)
	assert.Equal(t, int32(3), api.listCalls.Load())
	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, "t5", tasks[4].ID)
}

func TestFetchAllTasksDeduplicatesAcrossPages(t *testing.T) {
	api := &fakeAPI{t: t}
	api.listPages = func(cursor string) ([]string, bool) {
		if cursor == "" {
			return []string{taskJSON("t1"), taskJSON("t2")}, true
		}
		// The API repeats t2 on the next page.
		return []string{taskJSON("t2"), taskJSON("t3")}, false
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	tasks, err := svc.FetchAllTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 3)
}

func TestFetchAllTasksAbortsWhenPageYieldsNothingParseable(t *testing.T) {
	api := &fakeAPI{t: t}
	api.listPages = func(cursor string) ([]string, bool) {
		// Tasks without ids never parse; the cursor cannot advance.
		return []string{`{"name":"broken"}`}, true
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	tasks, err := svc.FetchAllTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, int32(1), api.listCalls.Load())
}

func TestFetchAllTasksHonorsPageCeiling(t *testing.T) {
	var n atomic.Int32
	api := &fakeAPI{t: t}
	api.listPages = func(cursor string) ([]string, bool) {
		// Always one fresh task and always more: an endless listing.
		return []string{taskJSON(fmt.Sprintf("gen-%d", n.Add(1)))}, true
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	client := httpx.New(httpx.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, Timeout: 2 * time.Second}, zerolog.Nop())
	svc, err := NewService(Config{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Timezone: "UTC",
		MaxPages: 3,
	}, client, zerolog.Nop())
	require.NoError(t, err)
	defer svc.Stop()

	tasks, ferr := svc.FetchAllTasks(context.Background())
	require.NoError(t, ferr)
	assert.Len(t, tasks, 3)
	assert.Equal(t, int32(3), api.listCalls.Load())
}

func TestFetchRecentTasksResolvesSubtasksOnce(t *testing.T) {
	api := &fakeAPI{t: t}
	api.listPages = func(cursor string) ([]string, bool) {
		// Both parents reference s1; s2 belongs to t2 only.
		return []string{taskJSON("t1", "s1"), taskJSON("t2", "s1", "s2")}, false
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	tasks, err := svc.FetchRecentTasksWithSubtasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, int32(2), api.taskCalls.Load())

	ids := map[string]bool{}
	for _, task := range tasks {
		ids[task.ID] = true
	}
	assert.True(t, ids["s1"] && ids["s2"])
}

func TestFetchEmployeeReadsThroughCache(t *testing.T) {
	api := &fakeAPI{t: t}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ctx := context.Background()

	first, err := svc.FetchEmployeeByID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "user42@example.com", first.Email)

	second, err := svc.FetchEmployeeByID(ctx, "42")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), api.employeeCalls.Load())

	svc.Cache().Clear()
	_, err = svc.FetchEmployeeByID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.employeeCalls.Load())
}
