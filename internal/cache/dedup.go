// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package cache

import (
	"context"
	"time"
)

// Deduplicator tracks recently seen keys for content-based message
// deduplication. It satisfies Watermill's ExpiringKeyRepository interface.
type Deduplicator struct {
	cache *LRU[time.Time]
}

// NewDeduplicator creates a deduplicator with the given capacity and window.
func NewDeduplicator(capacity int, window time.Duration) *Deduplicator {
	return &Deduplicator{cache: NewLRU[time.Time](capacity, window)}
}

// IsDuplicate reports whether key was seen within the window, recording it
// if not.
func (d *Deduplicator) IsDuplicate(_ context.Context, key string) (bool, error) {
	if _, seen := d.cache.Get(key); seen {
		return true, nil
	}
	d.cache.Add(key, time.Now())
	return false, nil
}
