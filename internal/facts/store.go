// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package facts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/lectern-lms/lectern/internal/event"
	"github.com/lectern-lms/lectern/internal/metrics"
)

// Key prefixes for BadgerDB storage. Primary keys carry the subject first;
// object-keyed index entries serve the per-course aggregations.
const (
	// view:<student_id>:<ts> → View
	viewKeyPrefix = "view:"
	// viewc:<course_id>:<student_id>:<ts> → empty (view count index)
	viewByCoursePrefix = "viewc:"
	// rating:<course_id>:<student_id>:<ts> → Rating
	ratingKeyPrefix = "rating:"
	// plact:<playlist_id>:<course_id>:<ts> → PlaylistAction
	playlistActKeyPrefix = "plact:"
)

// Store is the Badger-backed fact log. Facts are append-only; the store
// never mutates or deletes them.
type Store struct {
	db *badger.DB
}

// NewStore wraps an existing Badger handle, typically shared with the
// replica store.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Record appends the fact carried by an interaction event. Non-interaction
// events are ignored without error.
func (s *Store) Record(e *event.Event) error {
	switch e.Kind {
	case event.KindCourseViewed:
		return s.RecordView(&View{
			StudentID: e.StudentID,
			CourseID:  e.CourseID,
			At:        e.EmittedAt,
		})
	case event.KindCourseRated:
		return s.RecordRating(&Rating{
			StudentID: e.StudentID,
			CourseID:  e.CourseID,
			Rating:    e.Rating,
			At:        e.EmittedAt,
		})
	case event.KindPlaylistInteraction:
		return s.RecordPlaylistAction(&PlaylistAction{
			PlaylistID: e.PlaylistID,
			StudentID:  e.StudentID,
			CourseID:   e.CourseID,
			Action:     e.Action,
			At:         e.EmittedAt,
		})
	default:
		return nil
	}
}

// RecordView appends a view fact and its course index entry. Re-recording
// the same fact (a redelivery) overwrites the same key and stays idempotent.
func (s *Store) RecordView(v *View) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}

	ts := strconv.FormatInt(v.At.UnixNano(), 10)
	key := viewKeyPrefix + id(v.StudentID) + ":" + ts
	idx := viewByCoursePrefix + id(v.CourseID) + ":" + id(v.StudentID) + ":" + ts

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return err
		}
		return txn.Set([]byte(idx), nil)
	})
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}

	metrics.RecordFact("view")
	return nil
}

// RecordRating appends a rating fact.
func (s *Store) RecordRating(r *Rating) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal rating: %w", err)
	}

	key := ratingKeyPrefix + id(r.CourseID) + ":" + id(r.StudentID) + ":" +
		strconv.FormatInt(r.At.UnixNano(), 10)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("record rating: %w", err)
	}

	metrics.RecordFact("rating")
	return nil
}

// RecordPlaylistAction appends a playlist add/remove fact.
func (s *Store) RecordPlaylistAction(a *PlaylistAction) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal playlist action: %w", err)
	}

	key := playlistActKeyPrefix + id(a.PlaylistID) + ":" + id(a.CourseID) + ":" +
		strconv.FormatInt(a.At.UnixNano(), 10)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("record playlist action: %w", err)
	}

	metrics.RecordFact("playlist")
	return nil
}

// ViewedCourses returns the distinct course IDs a student has viewed.
func (s *Store) ViewedCourses(studentID int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	var out []int64

	prefix := viewKeyPrefix + id(studentID) + ":"
	err := s.scan(prefix, func(val []byte) error {
		var v View
		if err := json.Unmarshal(val, &v); err != nil {
			return err
		}
		if _, dup := seen[v.CourseID]; !dup {
			seen[v.CourseID] = struct{}{}
			out = append(out, v.CourseID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("viewed courses for student %d: %w", studentID, err)
	}
	return out, nil
}

// ViewCounts returns the total view count per course, from the course index.
func (s *Store) ViewCounts() (map[int64]int64, error) {
	counts := make(map[int64]int64)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(viewByCoursePrefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			courseID, err := keySegment(it.Item().Key(), viewByCoursePrefix)
			if err != nil {
				return err
			}
			counts[courseID]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("view counts: %w", err)
	}
	return counts, nil
}

// RatingAverages returns the arithmetic-mean rating per course, excluding
// courses with fewer than minRatings rating facts (the cold-start guard).
func (s *Store) RatingAverages(minRatings int) ([]CourseRating, error) {
	sums := make(map[int64]int)
	counts := make(map[int64]int)

	err := s.scan(ratingKeyPrefix, func(val []byte) error {
		var r Rating
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		sums[r.CourseID] += r.Rating
		counts[r.CourseID]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rating averages: %w", err)
	}

	out := make([]CourseRating, 0, len(counts))
	for courseID, n := range counts {
		if n < minRatings {
			continue
		}
		out = append(out, CourseRating{
			CourseID: courseID,
			Average:  float64(sums[courseID]) / float64(n),
			Count:    n,
		})
	}
	return out, nil
}

// PlaylistCoOccurrence counts, for each course not in viewed, how many
// playlists it currently shares with at least one viewed course. Current
// playlist membership is the fold of the add/remove facts: a course is a
// member when its latest action is an add.
func (s *Store) PlaylistCoOccurrence(viewed []int64) (map[int64]int, error) {
	viewedSet := make(map[int64]struct{}, len(viewed))
	for _, c := range viewed {
		viewedSet[c] = struct{}{}
	}

	// playlist → course → latest action
	membership := make(map[int64]map[int64]*PlaylistAction)

	err := s.scan(playlistActKeyPrefix, func(val []byte) error {
		var a PlaylistAction
		if err := json.Unmarshal(val, &a); err != nil {
			return err
		}
		courses, ok := membership[a.PlaylistID]
		if !ok {
			courses = make(map[int64]*PlaylistAction)
			membership[a.PlaylistID] = courses
		}
		if prev, ok := courses[a.CourseID]; !ok || a.At.After(prev.At) {
			courses[a.CourseID] = &a
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("playlist co-occurrence: %w", err)
	}

	cooc := make(map[int64]int)
	for _, courses := range membership {
		var members []int64
		hasViewed := false
		for courseID, last := range courses {
			if last.Action != event.PlaylistActionAdd {
				continue
			}
			members = append(members, courseID)
			if _, ok := viewedSet[courseID]; ok {
				hasViewed = true
			}
		}
		if !hasViewed {
			continue
		}
		for _, courseID := range members {
			if _, ok := viewedSet[courseID]; ok {
				continue
			}
			cooc[courseID]++
		}
	}
	return cooc, nil
}

// scan iterates all values under prefix.
func (s *Store) scan(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// keySegment parses the first colon-separated int64 segment after prefix.
func keySegment(key []byte, prefix string) (int64, error) {
	rest := string(key[len(prefix):])
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		rest = rest[:i]
	}
	v, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed fact key %q: %w", key, err)
	}
	return v, nil
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
