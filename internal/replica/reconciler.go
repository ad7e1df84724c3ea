// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package replica

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lectern-lms/lectern/internal/event"
	"github.com/lectern-lms/lectern/internal/metrics"
)

// lockStripes is the number of striped mutexes serializing per-entity
// application. Entities hash to a stripe; different entities may share one.
const lockStripes = 64

// Reconciler applies domain events to the replica store.
//
// Each entity moves between two states, absent and present. CREATE and
// UPDATE both upsert, so redelivery and reordering collapse to
// last-delivered-wins; an UPDATE arriving before its CREATE synthesizes the
// record from the payload. DELETE removes the record, cascades course
// deletes to playlist associations, and is a no-op when already absent —
// including when a late UPDATE re-created the entity first (documented
// last-delivered-wins weakness).
type Reconciler struct {
	store *Store
	locks [lockStripes]sync.Mutex
	log   zerolog.Logger
}

// NewReconciler creates a reconciler over the given store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewReconciler(store *Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// Apply routes an event to the matching entity handler. Events the replica
// layer doesn't track (views, ratings) are ignored without error.
func (r *Reconciler) Apply(e *event.Event) error {
	switch e.Kind {
	case event.KindCourseCreated, event.KindCourseUpdated, event.KindCourseDeleted:
		return r.ApplyCourse(e)
	case event.KindUserCreated, event.KindUserUpdated, event.KindUserDeleted:
		return r.ApplyUser(e)
	case event.KindPlaylistInteraction:
		return r.ApplyPlaylistInteraction(e)
	default:
		return nil
	}
}

// ApplyCourse applies a course lifecycle event.
func (r *Reconciler) ApplyCourse(e *event.Event) error {
	unlock := r.lockEntity("course", e.CourseID)
	defer unlock()

	var err error
	switch e.Kind {
	case event.KindCourseCreated, event.KindCourseUpdated:
		err = r.upsertCourse(e)
	case event.KindCourseDeleted:
		err = r.deleteCourse(e)
	default:
		return fmt.Errorf("not a course event: %s", e.Kind)
	}

	metrics.RecordReplicaApply("course", operation(e.Kind), err)
	return err
}

func (r *Reconciler) upsertCourse(e *event.Event) error {
	c := &CourseReplica{
		ID:          e.CourseID,
		Title:       e.Title,
		Description: e.Description,
		HLSURL:      e.HLSURL,
		BranchID:    e.BranchID,
		TeacherID:   e.TeacherID,
		UpdatedAt:   e.EmittedAt,
	}
	if err := r.store.PutCourse(c); err != nil {
		return fmt.Errorf("upsert course %d: %w", e.CourseID, err)
	}

	r.log.Debug().
		Str("event", string(e.Kind)).
		Int64("course_id", e.CourseID).
		Msg("course replica upserted")
	return nil
}

func (r *Reconciler) deleteCourse(e *event.Event) error {
	if err := r.store.DeleteCourse(e.CourseID); err != nil {
		return fmt.Errorf("delete course %d: %w", e.CourseID, err)
	}

	removed, err := r.store.DeletePlaylistLinksForCourse(e.CourseID)
	if err != nil {
		return fmt.Errorf("cascade delete for course %d: %w", e.CourseID, err)
	}
	if removed > 0 {
		metrics.RecordCascadeDeletes(removed)
	}

	r.log.Info().
		Int64("course_id", e.CourseID).
		Int("playlist_links_removed", removed).
		Msg("course replica deleted")
	return nil
}

// ApplyUser applies a user lifecycle event.
func (r *Reconciler) ApplyUser(e *event.Event) error {
	unlock := r.lockEntity("user", e.UserID)
	defer unlock()

	var err error
	switch e.Kind {
	case event.KindUserCreated, event.KindUserUpdated:
		err = r.upsertUser(e)
	case event.KindUserDeleted:
		err = r.deleteUser(e)
	default:
		return fmt.Errorf("not a user event: %s", e.Kind)
	}

	metrics.RecordReplicaApply("user", operation(e.Kind), err)
	return err
}

func (r *Reconciler) upsertUser(e *event.Event) error {
	u := &UserReplica{
		ID:        e.UserID,
		Name:      e.Name,
		Email:     e.Email,
		Role:      e.Role,
		BranchID:  e.BranchID,
		UpdatedAt: e.EmittedAt,
	}
	if err := r.store.PutUser(u); err != nil {
		return fmt.Errorf("upsert user %d: %w", e.UserID, err)
	}

	r.log.Debug().
		Str("event", string(e.Kind)).
		Int64("user_id", e.UserID).
		Msg("user replica upserted")
	return nil
}

func (r *Reconciler) deleteUser(e *event.Event) error {
	if err := r.store.DeleteUser(e.UserID); err != nil {
		return fmt.Errorf("delete user %d: %w", e.UserID, err)
	}

	r.log.Info().Int64("user_id", e.UserID).Msg("user replica deleted")
	return nil
}

// ApplyPlaylistInteraction maintains playlist-course association rows from
// add/remove interactions.
func (r *Reconciler) ApplyPlaylistInteraction(e *event.Event) error {
	unlock := r.lockEntity("playlist", e.PlaylistID)
	defer unlock()

	var err error
	switch e.Action {
	case event.PlaylistActionAdd:
		err = r.store.PutPlaylistCourse(&PlaylistCourse{
			PlaylistID: e.PlaylistID,
			CourseID:   e.CourseID,
			StudentID:  e.StudentID,
			AddedAt:    e.EmittedAt,
		})
	case event.PlaylistActionRemove:
		err = r.store.DeletePlaylistCourse(e.PlaylistID, e.CourseID)
	default:
		return fmt.Errorf("unknown playlist action %q", e.Action)
	}

	metrics.RecordReplicaApply("playlist", e.Action, err)
	if err != nil {
		return fmt.Errorf("apply playlist interaction %d/%d: %w", e.PlaylistID, e.CourseID, err)
	}
	return nil
}

// lockEntity acquires the stripe lock for the entity and returns the
// unlock function.
func (r *Reconciler) lockEntity(entity string, id int64) func() {
	h := fnv.New32a()
	h.Write([]byte(entity))
	h.Write([]byte(strconv.FormatInt(id, 10)))
	m := &r.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// operation maps an event kind to its CRUD label for metrics.
func operation(k event.Kind) string {
	switch k {
	case event.KindCourseCreated, event.KindUserCreated:
		return "CREATE"
	case event.KindCourseUpdated, event.KindUserUpdated:
		return "UPDATE"
	case event.KindCourseDeleted, event.KindUserDeleted:
		return "DELETE"
	default:
		return string(k)
	}
}
