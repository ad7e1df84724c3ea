// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package recommend

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/lectern-lms/lectern/internal/cache"
	"github.com/lectern-lms/lectern/internal/config"
	"github.com/lectern-lms/lectern/internal/metrics"
	"github.com/lectern-lms/lectern/internal/replica"
)

// Merge outcomes, used as metric labels.
const (
	OutcomeFull     = "full"
	OutcomeFallback = "fallback"
	OutcomeEmpty    = "empty"
)

// ViewedLister returns the courses a student has already seen, which never
// appear in recommendations. Implemented by *facts.Store.
type ViewedLister interface {
	ViewedCourses(studentID int64) ([]int64, error)
}

// CourseGetter resolves course IDs to replica records for response
// hydration. Implemented by *replica.Store.
type CourseGetter interface {
	GetCourse(id int64) (*replica.CourseReplica, error)
}

// Aggregator merges the paired, branch-popular, and top-rated signals into
// one ranked list. Signals are fetched concurrently under the upstream
// timeout and cached per student; a failed signal is skipped, and when both
// primary signals fail the result degrades to top-rated alone, then to an
// empty list. Signal failures never surface to the caller.
type Aggregator struct {
	cfg     config.RecommendConfig
	paired  Source
	branch  Source
	top     Source
	viewed  ViewedLister
	catalog CourseGetter
	cache   *cache.LRU[[]int64]
	log     zerolog.Logger
}

// NewAggregator wires the three signal sources to the merge pipeline.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAggregator(
	cfg config.RecommendConfig,
	paired, branchPopular, topRated Source,
	viewed ViewedLister,
	catalog CourseGetter,
	log zerolog.Logger,
) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		paired:  paired,
		branch:  branchPopular,
		top:     topRated,
		viewed:  viewed,
		catalog: catalog,
		cache:   cache.NewLRU[[]int64](cfg.SignalCacheSize, cfg.SignalCacheTTL),
		log:     log.With().Str("component", "recommend").Logger(),
	}
}

// Recommend returns up to limit course IDs for the student, strongest
// signal first. A non-positive limit uses the configured default. The only
// error returned is context cancellation; signal failures degrade silently.
func (a *Aggregator) Recommend(ctx context.Context, studentID int64, limit int) ([]int64, error) {
	start := time.Now()
	if limit <= 0 {
		limit = a.cfg.Limit
	}

	exclude := a.excludeSet(studentID)

	var paired, branch, top Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { paired = a.fetchSignal(gctx, a.paired, studentID); return nil })
	g.Go(func() error { branch = a.fetchSignal(gctx, a.branch, studentID); return nil })
	g.Go(func() error { top = a.fetchSignal(gctx, a.top, studentID); return nil })
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged, outcome := a.merge(paired, branch, top, exclude, limit)

	metrics.RecordRecommendation(outcome, time.Since(start))
	a.log.Debug().
		Int64("student_id", studentID).
		Str("outcome", outcome).
		Int("count", len(merged)).
		Msg("recommendations served")

	return merged, nil
}

// Courses hydrates a recommendation list with replica records. Courses
// deleted since the signal was computed are skipped.
func (a *Aggregator) Courses(ctx context.Context, studentID int64, limit int) ([]*replica.CourseReplica, error) {
	ids, err := a.Recommend(ctx, studentID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*replica.CourseReplica, 0, len(ids))
	for _, id := range ids {
		c, err := a.catalog.GetCourse(id)
		if errors.Is(err, replica.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// merge interleaves the signals in priority order: the first PairedLimit
// paired courses, then branch popularity, then rating average. Each course
// keeps its first (strongest) position. When both primary signals are
// unavailable the list degrades to top-rated alone.
func (a *Aggregator) merge(paired, branch, top Result, exclude map[int64]struct{}, limit int) ([]int64, string) {
	outcome := OutcomeFull
	var ranked []int64

	switch {
	case paired.Available() || branch.Available():
		head := paired.Entries
		if len(head) > a.cfg.PairedLimit {
			head = head[:a.cfg.PairedLimit]
		}
		ranked = append(ranked, head...)
		ranked = append(ranked, branch.Entries...)
		ranked = append(ranked, top.Entries...)
	case top.Available():
		outcome = OutcomeFallback
		ranked = top.Entries
	default:
		return nil, OutcomeEmpty
	}

	merged := lo.Uniq(lo.Filter(ranked, func(id int64, _ int) bool {
		_, seen := exclude[id]
		return !seen
	}))
	if len(merged) > limit {
		merged = merged[:limit]
	}
	if len(merged) == 0 {
		outcome = OutcomeEmpty
	}
	return merged, outcome
}

// fetchSignal returns the cached signal when fresh, otherwise fetches it
// under the upstream timeout.
func (a *Aggregator) fetchSignal(ctx context.Context, src Source, studentID int64) Result {
	key := src.Name() + ":" + strconv.FormatInt(studentID, 10)
	if entries, ok := a.cache.Get(key); ok {
		metrics.RecordCacheHit("signal")
		return Result{Entries: entries}
	}
	metrics.RecordCacheMiss("signal")

	fctx, cancel := context.WithTimeout(ctx, a.cfg.UpstreamTimeout)
	defer cancel()

	start := time.Now()
	entries, err := src.Fetch(fctx, studentID)
	metrics.RecordSignalFetch(src.Name(), time.Since(start), err)
	if err != nil {
		a.log.Warn().
			Err(err).
			Str("signal", src.Name()).
			Int64("student_id", studentID).
			Msg("signal unavailable, degrading")
		return Result{Err: err}
	}

	a.cache.Add(key, entries)
	return Result{Entries: entries}
}

// excludeSet builds the viewed-course exclusion set. A fact store failure
// here degrades to no exclusions rather than failing the request.
func (a *Aggregator) excludeSet(studentID int64) map[int64]struct{} {
	viewed, err := a.viewed.ViewedCourses(studentID)
	if err != nil {
		a.log.Warn().
			Err(err).
			Int64("student_id", studentID).
			Msg("viewed-course lookup failed, serving without exclusions")
		return nil
	}

	set := make(map[int64]struct{}, len(viewed))
	for _, id := range viewed {
		set[id] = struct{}{}
	}
	return set
}
