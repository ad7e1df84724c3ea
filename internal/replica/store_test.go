// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package replica

import (
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("opening in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewStore(db)
}

func TestCourseCRUD(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetCourse(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCourse on empty store: err = %v, want ErrNotFound", err)
	}

	c := &CourseReplica{
		ID: 1, Title: "Calculus", HLSURL: "http://cdn/1.m3u8",
		BranchID: 2, TeacherID: 3, UpdatedAt: time.Now().UTC(),
	}
	if err := s.PutCourse(c); err != nil {
		t.Fatalf("PutCourse() error = %v", err)
	}

	got, err := s.GetCourse(1)
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if got.Title != "Calculus" || got.BranchID != 2 {
		t.Errorf("GetCourse() = %+v", got)
	}

	c.Title = "Calculus II"
	if err := s.PutCourse(c); err != nil {
		t.Fatalf("PutCourse() replace error = %v", err)
	}
	got, _ = s.GetCourse(1)
	if got.Title != "Calculus II" {
		t.Errorf("Title after replace = %q", got.Title)
	}

	if err := s.DeleteCourse(1); err != nil {
		t.Fatalf("DeleteCourse() error = %v", err)
	}
	if _, err := s.GetCourse(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCourse after delete: err = %v, want ErrNotFound", err)
	}

	// Deleting an absent course is not an error.
	if err := s.DeleteCourse(1); err != nil {
		t.Errorf("second DeleteCourse() error = %v", err)
	}
}

func TestListCoursesByBranch(t *testing.T) {
	s := newTestStore(t)

	for _, c := range []*CourseReplica{
		{ID: 1, Title: "A", HLSURL: "u", BranchID: 1},
		{ID: 2, Title: "B", HLSURL: "u", BranchID: 2},
		{ID: 3, Title: "C", HLSURL: "u", BranchID: 1},
	} {
		if err := s.PutCourse(c); err != nil {
			t.Fatalf("PutCourse(%d) error = %v", c.ID, err)
		}
	}

	got, err := s.ListCoursesByBranch(1)
	if err != nil {
		t.Fatalf("ListCoursesByBranch() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListCoursesByBranch(1) returned %d courses, want 2", len(got))
	}
	for _, c := range got {
		if c.BranchID != 1 {
			t.Errorf("course %d has branch %d, want 1", c.ID, c.BranchID)
		}
	}
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	u := &UserReplica{ID: 7, Email: "a@b.c", Role: "student", UpdatedAt: time.Now().UTC()}
	if err := s.PutUser(u); err != nil {
		t.Fatalf("PutUser() error = %v", err)
	}

	got, err := s.GetUser(7)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Email != "a@b.c" || got.Role != "student" {
		t.Errorf("GetUser() = %+v", got)
	}

	if err := s.DeleteUser(7); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := s.GetUser(7); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser after delete: err = %v, want ErrNotFound", err)
	}
}

func TestPlaylistAssociationsAndCascade(t *testing.T) {
	s := newTestStore(t)

	links := []*PlaylistCourse{
		{PlaylistID: 1, CourseID: 10},
		{PlaylistID: 1, CourseID: 20},
		{PlaylistID: 2, CourseID: 10},
		{PlaylistID: 3, CourseID: 30},
	}
	for _, pc := range links {
		if err := s.PutPlaylistCourse(pc); err != nil {
			t.Fatalf("PutPlaylistCourse(%d,%d) error = %v", pc.PlaylistID, pc.CourseID, err)
		}
	}

	got, err := s.ListPlaylistCourses(1)
	if err != nil {
		t.Fatalf("ListPlaylistCourses() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("playlist 1 has %d links, want 2", len(got))
	}

	// Cascade: deleting course 10 removes its links from playlists 1 and 2.
	removed, err := s.DeletePlaylistLinksForCourse(10)
	if err != nil {
		t.Fatalf("DeletePlaylistLinksForCourse() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d links, want 2", removed)
	}

	got, _ = s.ListPlaylistCourses(1)
	if len(got) != 1 || got[0].CourseID != 20 {
		t.Errorf("playlist 1 after cascade = %+v", got)
	}
	got, _ = s.ListPlaylistCourses(2)
	if len(got) != 0 {
		t.Errorf("playlist 2 after cascade = %+v", got)
	}
	got, _ = s.ListPlaylistCourses(3)
	if len(got) != 1 {
		t.Errorf("playlist 3 after cascade = %+v", got)
	}

	// Cascade for a course with no links removes nothing.
	removed, err = s.DeletePlaylistLinksForCourse(99)
	if err != nil {
		t.Fatalf("DeletePlaylistLinksForCourse(99) error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d links for unlinked course, want 0", removed)
	}
}
