// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/lectern-lms/lectern/internal/facts"
	"github.com/lectern-lms/lectern/internal/replica"
)

// FactReader is the slice of the fact log the local sources aggregate over.
// Implemented by *facts.Store.
type FactReader interface {
	ViewedCourses(studentID int64) ([]int64, error)
	ViewCounts() (map[int64]int64, error)
	RatingAverages(minRatings int) ([]facts.CourseRating, error)
	PlaylistCoOccurrence(viewed []int64) (map[int64]int, error)
}

// CourseCatalog is the slice of the replica store the local sources need.
// Implemented by *replica.Store.
type CourseCatalog interface {
	GetUser(id int64) (*replica.UserReplica, error)
	ListCoursesByBranch(branchID int64) ([]*replica.CourseReplica, error)
}

// PairedSource ranks courses by how many playlists they currently share
// with a course the student has viewed. A student with no views has no
// pairing signal and gets an empty list.
type PairedSource struct {
	facts FactReader
}

// NewPairedSource creates the playlist co-occurrence source.
func NewPairedSource(f FactReader) *PairedSource {
	return &PairedSource{facts: f}
}

// Name implements Source.
func (s *PairedSource) Name() string { return SignalPaired }

// Fetch implements Source.
func (s *PairedSource) Fetch(_ context.Context, studentID int64) ([]int64, error) {
	viewed, err := s.facts.ViewedCourses(studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: viewed courses: %w", ErrSignalUnavailable, err)
	}
	if len(viewed) == 0 {
		return nil, nil
	}

	cooc, err := s.facts.PlaylistCoOccurrence(viewed)
	if err != nil {
		return nil, fmt.Errorf("%w: playlist co-occurrence: %w", ErrSignalUnavailable, err)
	}

	return rankByCount(cooc), nil
}

// BranchPopularSource ranks the courses of the student's branch by total
// view count. Unknown students have no branch, so the signal is unavailable
// for them and the aggregator falls back.
type BranchPopularSource struct {
	facts   FactReader
	catalog CourseCatalog
}

// NewBranchPopularSource creates the branch popularity source.
func NewBranchPopularSource(f FactReader, c CourseCatalog) *BranchPopularSource {
	return &BranchPopularSource{facts: f, catalog: c}
}

// Name implements Source.
func (s *BranchPopularSource) Name() string { return SignalBranchPopular }

// Fetch implements Source.
func (s *BranchPopularSource) Fetch(_ context.Context, studentID int64) ([]int64, error) {
	user, err := s.catalog.GetUser(studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve student %d: %w", ErrSignalUnavailable, studentID, err)
	}

	courses, err := s.catalog.ListCoursesByBranch(user.BranchID)
	if err != nil {
		return nil, fmt.Errorf("%w: branch %d courses: %w", ErrSignalUnavailable, user.BranchID, err)
	}

	views, err := s.facts.ViewCounts()
	if err != nil {
		return nil, fmt.Errorf("%w: view counts: %w", ErrSignalUnavailable, err)
	}

	ids := lo.Map(courses, func(c *replica.CourseReplica, _ int) int64 { return c.ID })
	sort.Slice(ids, func(i, j int) bool {
		if views[ids[i]] != views[ids[j]] {
			return views[ids[i]] > views[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids, nil
}

// TopRatedSource ranks courses by arithmetic-mean rating, excluding courses
// with fewer ratings than the cold-start threshold.
type TopRatedSource struct {
	facts      FactReader
	minRatings int
}

// NewTopRatedSource creates the rating average source.
func NewTopRatedSource(f FactReader, minRatings int) *TopRatedSource {
	return &TopRatedSource{facts: f, minRatings: minRatings}
}

// Name implements Source.
func (s *TopRatedSource) Name() string { return SignalTopRated }

// Fetch implements Source.
func (s *TopRatedSource) Fetch(_ context.Context, _ int64) ([]int64, error) {
	rated, err := s.facts.RatingAverages(s.minRatings)
	if err != nil {
		return nil, fmt.Errorf("%w: rating averages: %w", ErrSignalUnavailable, err)
	}

	sort.Slice(rated, func(i, j int) bool {
		if rated[i].Average != rated[j].Average {
			return rated[i].Average > rated[j].Average
		}
		if rated[i].Count != rated[j].Count {
			return rated[i].Count > rated[j].Count
		}
		return rated[i].CourseID < rated[j].CourseID
	})
	return lo.Map(rated, func(r facts.CourseRating, _ int) int64 { return r.CourseID }), nil
}

// rankByCount orders course IDs by descending count, breaking ties on the
// lower course ID for deterministic output.
func rankByCount(counts map[int64]int) []int64 {
	ids := lo.Keys(counts)
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
