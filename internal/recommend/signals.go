// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

// Package recommend merges independent recommendation signals into a single
// ranked course list. Signals are best-effort: each is fetched under a
// bounded timeout, an unavailable signal is skipped rather than failing the
// request, and the aggregator degrades to the remaining signals or an empty
// list.
package recommend

import (
	"context"
	"errors"
)

// Signal names, used as metric labels and cache key prefixes.
const (
	SignalPaired        = "paired"
	SignalBranchPopular = "branch_popular"
	SignalTopRated      = "top_rated"
)

// ErrSignalUnavailable wraps any upstream failure so callers can treat all
// signal errors uniformly.
var ErrSignalUnavailable = errors.New("signal unavailable")

// Source produces one recommendation signal: an ordered list of course IDs,
// strongest first. Fetch must honor ctx cancellation; the aggregator imposes
// the upstream timeout.
type Source interface {
	// Name returns the signal name, one of the Signal* constants.
	Name() string

	// Fetch returns the signal's ranked course IDs for the student.
	Fetch(ctx context.Context, studentID int64) ([]int64, error)
}

// Result is the outcome of fetching one signal.
type Result struct {
	Entries []int64
	Err     error
}

// Available reports whether the signal produced a usable list.
func (r Result) Available() bool {
	return r.Err == nil
}
