// Package commentquality scores recent work descriptions through the
// external oracle and flags the ones it fails.
package commentquality

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/ai"
	"workguard/internal/audit"
)

// Analyzer scores one work description. Implemented by ai.Oracle.
type Analyzer interface {
	Analyze(ctx context.Context, req ai.Request) (*ai.Result, error)
}

// Violation is one comment the oracle failed, with its scores attached.
type Violation struct {
	Task    *audit.Task
	Comment *audit.TaskComment
	Result  *ai.Result
}

type Checker struct {
	Oracle   Analyzer
	Lookback time.Duration // comment window, default 24h
	MinHours float64       // minimum logged hours to score, default 1
	// PositionFor resolves an author id to a job title for the prompt.
	// May be nil.
	PositionFor func(ctx context.Context, authorID string) string
	Log         zerolog.Logger
}

func (c Checker) lookback() time.Duration {
	if c.Lookback <= 0 {
		return 24 * time.Hour
	}
	return c.Lookback
}

func (c Checker) minHours() float64 {
	if c.MinHours <= 0 {
		return 1.0
	}
	return c.MinHours
}

// Check submits every eligible comment to the oracle. Content-filter
// rejections and exhausted transport retries skip the comment rather
// than flag it.
func (c Checker) Check(ctx context.Context, tasks []*audit.Task, now time.Time) []Violation {
	start := now.Add(-c.lookback())

	var out []Violation
	checked := 0
	for _, t := range tasks {
		if t == nil {
			continue
		}
		for _, cm := range t.Comments {
			if !c.eligible(cm, start, now) {
				continue
			}
			if ctx.Err() != nil {
				return out
			}
			checked++

			req := ai.Request{
				Comment:  cm.Content,
				Hours:    cm.WorkHours,
				TaskName: t.Name,
			}
			if c.PositionFor != nil && cm.Author != nil {
				req.Position = c.PositionFor(ctx, cm.Author.ID)
			}

			res, err := c.Oracle.Analyze(ctx, req)
			if err != nil {
				if errors.Is(err, ai.ErrContentFiltered) {
					c.Log.Warn().Str("task", t.ID).Msg("comment rejected by content filter, skipped")
				} else {
					c.Log.Error().Err(err).Str("task", t.ID).Msg("oracle analysis failed, comment skipped")
				}
				continue
			}
			if res.Verdict == ai.VerdictFail {
				out = append(out, Violation{Task: t, Comment: cm, Result: res})
			}
		}
	}
	c.Log.Debug().Int("checked", checked).Int("violations", len(out)).Msg("comment scoring done")
	return out
}

func (c Checker) eligible(cm *audit.TaskComment, start, end time.Time) bool {
	if cm == nil || !cm.HasWorkTime() {
		return false
	}
	if cm.WorkHours < c.minHours() {
		return false
	}
	if strings.TrimSpace(cm.Content) == "" {
		return false
	}
	return audit.InWindow(cm.CreatedAt, start, end)
}
