// Package megaplan acquires the entity graph for one audit run from the
// project-management API: cursor pagination over the task listing, parallel
// batched comment and subtask fetches, and cached employee enrichment.
package megaplan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"workguard/internal/audit"
	"workguard/internal/httpx"
	"workguard/internal/metrics"
)

type Config struct {
	BaseURL     string
	APIKey      string
	EmailDomain string
	Timezone    string // IANA name, default Europe/Moscow

	PageSize  int // listing page size
	BatchSize int // tasks per comment/subtask batch
	Workers   int // acquisition pool size
	QueueSize int
	MaxPages  int // hard pagination ceiling

	SubtaskRatePerSec float64 // token-bucket rate for per-id subtask fetches

	StopTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.Workers <= 0 {
		c.Workers = 5
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 1000
	}
	if c.SubtaskRatePerSec <= 0 {
		c.SubtaskRatePerSec = 10
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Moscow"
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 5 * time.Second
	}
	return c
}

// Service owns its worker pool, employee cache and rate limiter; lifetimes
// are explicit and end with Stop.
type Service struct {
	cfg     Config
	client  *httpx.Client
	cache   *EmployeeCache
	pool    *workerPool
	limiter *rate.Limiter
	parse   parser
	log     zerolog.Logger
}

func NewService(cfg Config, client *httpx.Client, log zerolog.Logger) (*Service, error) {
	cfg = cfg.withDefaults()
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	return &Service{
		cfg:     cfg,
		client:  client,
		cache:   NewEmployeeCache(),
		pool:    newWorkerPool(cfg.Workers, cfg.QueueSize, log),
		limiter: rate.NewLimiter(rate.Limit(cfg.SubtaskRatePerSec), 1),
		parse:   parser{loc: loc, emailDomain: cfg.EmailDomain},
		log:     log,
	}, nil
}

// Stop shuts the acquisition pool down with a bounded await and drops the
// employee cache.
func (s *Service) Stop() {
	s.pool.stop(s.cfg.StopTimeout)
	s.cache.Clear()
}

// Cache exposes the employee cache for housekeeping.
func (s *Service) Cache() *EmployeeCache { return s.cache }

// FetchAllTasks walks the full task listing in cursor order, loading
// comments for each page before requesting the next one.
func (s *Service) FetchAllTasks(ctx context.Context) ([]*audit.Task, error) {
	log := s.log.With().Str("session", uuid.NewString()).Logger()

	var all []*audit.Task
	seen := map[string]bool{}
	cursor := ""
	pageCount := 0

	for {
		pageCount++
		if pageCount > s.cfg.MaxPages {
			log.Error().Int("pages", s.cfg.MaxPages).Msg("pagination ceiling reached, aborting listing")
			return all, nil
		}

		resp, err := s.client.Execute(ctx, s.listRequest(cursor))
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			// Exhausted retries degrade to whatever was already collected.
			log.Error().Err(err).Int("page", pageCount).Msg("task listing failed")
			return all, nil
		}
		if !resp.Success() {
			log.Error().Int("status", resp.StatusCode).Int("page", pageCount).Msg("task listing rejected")
			return all, nil
		}

		var lr listResponse
		if err := json.Unmarshal(resp.Body, &lr); err != nil {
			log.Error().Err(err).Int("page", pageCount).Msg("task listing unparseable")
			return all, nil
		}

		pageTasks := make([]*audit.Task, 0, len(lr.Data))
		for _, raw := range lr.Data {
			t, err := s.parse.task(raw)
			if err != nil {
				log.Warn().Err(err).Msg("dropping unparseable task")
				continue
			}
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			pageTasks = append(pageTasks, t)
			cursor = t.ID
		}

		// The cursor only advances on parseable tasks. A non-empty page
		// where nothing parsed would loop forever; bail out instead.
		if len(pageTasks) == 0 && lr.Meta.Pagination.HasMoreNext {
			log.Error().Int("page", pageCount).Msg("page yielded no parseable tasks but more are reported, aborting listing")
			return all, nil
		}

		s.loadComments(ctx, pageTasks)
		all = append(all, pageTasks...)
		metrics.PagesFetched.Inc()

		log.Debug().Int("page", pageCount).Int("page_tasks", len(pageTasks)).Int("total", len(all)).Msg("page processed")

		if !lr.Meta.Pagination.HasMoreNext {
			break
		}
		if ctx.Err() != nil {
			return all, ctx.Err()
		}
	}

	log.Info().Int("tasks", len(all)).Int("pages", pageCount).Msg("task listing complete")
	return all, nil
}

// FetchRecentTasksWithSubtasks fetches the first listing page, then fans
// out one fetch per distinct referenced subtask id through the rate-limited
// pool, returning top-level tasks and subtasks as a single flat set with
// comments loaded for all of them.
func (s *Service) FetchRecentTasksWithSubtasks(ctx context.Context) ([]*audit.Task, error) {
	log := s.log.With().Str("session", uuid.NewString()).Logger()

	resp, err := s.client.Execute(ctx, s.listRequest(""))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().Err(err).Msg("recent task listing failed")
		return nil, nil
	}
	if !resp.Success() {
		log.Error().Int("status", resp.StatusCode).Msg("recent task listing rejected")
		return nil, nil
	}

	var lr listResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		log.Error().Err(err).Msg("recent task listing unparseable")
		return nil, nil
	}

	tasks := make([]*audit.Task, 0, len(lr.Data))
	seen := map[string]bool{}
	for _, raw := range lr.Data {
		t, err := s.parse.task(raw)
		if err != nil {
			log.Warn().Err(err).Msg("dropping unparseable task")
			continue
		}
		if !seen[t.ID] {
			seen[t.ID] = true
			tasks = append(tasks, t)
		}
	}

	// Distinct subtask ids not already present as top-level tasks.
	var subtaskIDs []string
	for _, t := range tasks {
		for _, id := range t.SubtaskIDs {
			if !seen[id] {
				seen[id] = true
				subtaskIDs = append(subtaskIDs, id)
			}
		}
	}

	subtasks := s.fetchSubtasks(ctx, subtaskIDs, log)
	tasks = append(tasks, subtasks...)

	s.loadComments(ctx, tasks)
	log.Info().Int("top_level", len(tasks)-len(subtasks)).Int("subtasks", len(subtasks)).Msg("recent task set assembled")
	return tasks, nil
}

// fetchSubtasks partitions ids into batches executed on the pool; each
// fetch waits on the token bucket first. Failed resolutions are simply
// absent from the result.
func (s *Service) fetchSubtasks(ctx context.Context, ids []string, log zerolog.Logger) []*audit.Task {
	if len(ids) == 0 {
		return nil
	}

	var mu sync.Mutex
	var out []*audit.Task

	var wg sync.WaitGroup
	for _, batch := range batches(ids, s.cfg.BatchSize) {
		batch := batch
		wg.Add(1)
		ok := s.pool.submit(func() {
			defer wg.Done()
			for _, id := range batch {
				if err := s.limiter.Wait(ctx); err != nil {
					return
				}
				t, err := s.FetchTaskByID(ctx, id)
				if err != nil || t == nil {
					log.Warn().Str("subtask", id).Err(err).Msg("subtask not resolved")
					continue
				}
				mu.Lock()
				out = append(out, t)
				mu.Unlock()
			}
		})
		if !ok {
			wg.Done()
		}
	}
	wg.Wait()
	return out
}

// loadComments fetches comments for every task concurrently in fixed-size
// batches and blocks until all batches complete. Per-task failures degrade
// to an empty comment list.
func (s *Service) loadComments(ctx context.Context, tasks []*audit.Task) {
	if len(tasks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, batch := range batches(tasks, s.cfg.BatchSize) {
		batch := batch
		wg.Add(1)
		ok := s.pool.submit(func() {
			defer wg.Done()
			for _, t := range batch {
				comments, err := s.FetchTaskComments(ctx, t.ID)
				if err != nil {
					s.log.Warn().Str("task", t.ID).Err(err).Msg("comments unavailable, degrading to none")
					t.Comments = nil
					continue
				}
				t.Comments = comments
			}
		})
		if !ok {
			wg.Done()
		}
	}
	wg.Wait()
}

// FetchTaskByID fetches and parses a single task.
func (s *Service) FetchTaskByID(ctx context.Context, id string) (*audit.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("empty task id")
	}
	q, _ := json.Marshal(listQuery{Fields: taskFields})
	u := fmt.Sprintf("%s/api/v3/task/%s?%s", s.cfg.BaseURL, id, url.QueryEscape(string(q)))

	resp, err := s.client.Execute(ctx, s.get(u))
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, fmt.Errorf("task %s: status %d", id, resp.StatusCode)
	}
	var er entityResponse
	if err := json.Unmarshal(resp.Body, &er); err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	return s.parse.task(er.Data)
}

// FetchTaskComments fetches and parses every comment of one task.
// Individual unparseable comments are dropped.
func (s *Service) FetchTaskComments(ctx context.Context, taskID string) ([]*audit.TaskComment, error) {
	if taskID == "" {
		return nil, fmt.Errorf("empty task id")
	}
	u := fmt.Sprintf("%s/api/v3/task/%s/comments", s.cfg.BaseURL, taskID)

	resp, err := s.client.Execute(ctx, s.get(u))
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, fmt.Errorf("comments for %s: status %d", taskID, resp.StatusCode)
	}
	var lr listResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		return nil, fmt.Errorf("comments for %s: %w", taskID, err)
	}

	comments := make([]*audit.TaskComment, 0, len(lr.Data))
	for _, raw := range lr.Data {
		c, err := s.parse.comment(raw, taskID)
		if err != nil {
			s.log.Warn().Str("task", taskID).Err(err).Msg("dropping unparseable comment")
			continue
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// FetchEmployeeByID resolves an employee, read-through via the cache.
// A successful fetch populates the cache before returning.
func (s *Service) FetchEmployeeByID(ctx context.Context, id string) (*audit.Employee, error) {
	if id == "" {
		return nil, fmt.Errorf("empty employee id")
	}
	if e, ok := s.cache.Get(id); ok {
		metrics.EmployeeCacheHits.Inc()
		return e, nil
	}
	metrics.EmployeeCacheMisses.Inc()

	u := fmt.Sprintf("%s/api/v3/employee/%s", s.cfg.BaseURL, id)
	resp, err := s.client.Execute(ctx, s.get(u))
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, fmt.Errorf("employee %s: status %d", id, resp.StatusCode)
	}
	var er entityResponse
	if err := json.Unmarshal(resp.Body, &er); err != nil {
		return nil, fmt.Errorf("employee %s: %w", id, err)
	}
	var ep employeePayload
	if err := json.Unmarshal(er.Data, &ep); err != nil {
		return nil, fmt.Errorf("employee %s: %w", id, err)
	}
	e := s.parse.employee(&ep)
	if e == nil {
		return nil, fmt.Errorf("employee %s: empty record", id)
	}
	s.cache.Put(id, e)
	return e, nil
}

// TaskURL returns the human-facing card URL carried into notifications.
func (s *Service) TaskURL(id string) string {
	return fmt.Sprintf("%s/task/%s/card/", s.cfg.BaseURL, id)
}

func (s *Service) listRequest(cursor string) httpx.Request {
	q := listQuery{Limit: s.cfg.PageSize, Fields: taskFields}
	if cursor != "" {
		q.PageAfter = &pageCursor{ContentType: "Task", ID: cursor}
	}
	b, _ := json.Marshal(q)
	return s.get(fmt.Sprintf("%s/api/v3/task?%s", s.cfg.BaseURL, url.QueryEscape(string(b))))
}

func (s *Service) get(u string) httpx.Request {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+s.cfg.APIKey)
	h.Set("Accept", "application/json")
	return httpx.Request{Method: http.MethodGet, URL: u, Header: h}
}

// batches partitions items into slices of at most size elements.
func batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
