// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUGetAdd(t *testing.T) {
	c := NewLRU[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache returned ok")
	}

	c.Add("a", "1")
	got, ok := c.Get("a")
	if !ok || got != "1" {
		t.Errorf("Get(a) = (%q, %v), want (1, true)", got, ok)
	}

	c.Add("a", "2")
	got, _ = c.Get("a")
	if got != "2" {
		t.Errorf("Get(a) after update = %q, want 2", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")
	c.Add("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry was not evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry missing")
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU[int](8, 10*time.Millisecond)

	c.Add("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry still served")
	}
}

func TestLRURemoveAndClear(t *testing.T) {
	c := NewLRU[int](8, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)

	if !c.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator(16, time.Minute)
	ctx := context.Background()

	dup, err := d.IsDuplicate(ctx, "COURSE_VIEWED:7:1")
	if err != nil || dup {
		t.Errorf("first sighting: (dup=%v, err=%v), want (false, nil)", dup, err)
	}

	dup, err = d.IsDuplicate(ctx, "COURSE_VIEWED:7:1")
	if err != nil || !dup {
		t.Errorf("second sighting: (dup=%v, err=%v), want (true, nil)", dup, err)
	}
}
