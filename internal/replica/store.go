// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package replica

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/lectern-lms/lectern/internal/config"
	"github.com/lectern-lms/lectern/internal/logging"
)

// Key prefixes for BadgerDB storage.
const (
	courseKeyPrefix = "course:"
	userKeyPrefix   = "user:"

	// plc:<playlist_id>:<course_id> is the primary association row;
	// plcc:<course_id>:<playlist_id> is the reverse index used by cascade
	// deletes.
	playlistKeyPrefix      = "plc:"
	playlistByCoursePrefix = "plcc:"
)

// ErrNotFound is returned when a replica record does not exist.
var ErrNotFound = errors.New("replica record not found")

// Store is the Badger-backed replica store. It is safe for concurrent use;
// write serialization per entity is the reconciler's job.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the replica store described by cfg.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open replica store: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStore wraps an existing Badger handle. The caller keeps ownership of
// the handle's lifecycle.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying Badger handle for stores sharing the database,
// such as the interaction fact log.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs Badger value-log garbage collection until the context is
// canceled, waking at the given interval.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	log := logging.With().Str("component", "replica-store").Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect.
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				log.Warn().Err(err).Msg("value log GC failed")
			}
		}
	}
}

// PutCourse inserts or replaces a course replica.
func (s *Store) PutCourse(c *CourseReplica) error {
	return s.put(courseKey(c.ID), c)
}

// GetCourse retrieves a course replica by ID.
func (s *Store) GetCourse(id int64) (*CourseReplica, error) {
	var c CourseReplica
	if err := s.get(courseKey(id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCourse removes a course replica. Deleting an absent course is not
// an error.
func (s *Store) DeleteCourse(id int64) error {
	return s.delete(courseKey(id))
}

// ListCoursesByBranch returns all course replicas in the given branch.
func (s *Store) ListCoursesByBranch(branchID int64) ([]*CourseReplica, error) {
	var out []*CourseReplica
	err := s.scan(courseKeyPrefix, func(val []byte) error {
		var c CourseReplica
		if err := json.Unmarshal(val, &c); err != nil {
			return err
		}
		if c.BranchID == branchID {
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

// ListCourses returns all course replicas.
func (s *Store) ListCourses() ([]*CourseReplica, error) {
	var out []*CourseReplica
	err := s.scan(courseKeyPrefix, func(val []byte) error {
		var c CourseReplica
		if err := json.Unmarshal(val, &c); err != nil {
			return err
		}
		out = append(out, &c)
		return nil
	})
	return out, err
}

// PutUser inserts or replaces a user replica.
func (s *Store) PutUser(u *UserReplica) error {
	return s.put(userKey(u.ID), u)
}

// GetUser retrieves a user replica by ID.
func (s *Store) GetUser(id int64) (*UserReplica, error) {
	var u UserReplica
	if err := s.get(userKey(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes a user replica. Deleting an absent user is not an error.
func (s *Store) DeleteUser(id int64) error {
	return s.delete(userKey(id))
}

// PutPlaylistCourse records a playlist-course association, maintaining the
// reverse index for cascade deletes.
func (s *Store) PutPlaylistCourse(pc *PlaylistCourse) error {
	data, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("marshal playlist association: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(playlistKey(pc.PlaylistID, pc.CourseID), data); err != nil {
			return fmt.Errorf("set association: %w", err)
		}
		if err := txn.Set(playlistByCourseKey(pc.CourseID, pc.PlaylistID), nil); err != nil {
			return fmt.Errorf("set reverse index: %w", err)
		}
		return nil
	})
}

// DeletePlaylistCourse removes a single playlist-course association.
func (s *Store) DeletePlaylistCourse(playlistID, courseID int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(playlistKey(playlistID, courseID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Delete(playlistByCourseKey(courseID, playlistID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

// ListPlaylistCourses returns the association rows for a playlist.
func (s *Store) ListPlaylistCourses(playlistID int64) ([]*PlaylistCourse, error) {
	var out []*PlaylistCourse
	prefix := playlistKeyPrefix + strconv.FormatInt(playlistID, 10) + ":"
	err := s.scan(prefix, func(val []byte) error {
		var pc PlaylistCourse
		if err := json.Unmarshal(val, &pc); err != nil {
			return err
		}
		out = append(out, &pc)
		return nil
	})
	return out, err
}

// DeletePlaylistLinksForCourse removes every association referencing the
// course via the reverse index. Returns the number of rows removed.
func (s *Store) DeletePlaylistLinksForCourse(courseID int64) (int, error) {
	// Collect playlist IDs first; Badger iterators can't span Update calls.
	var playlistIDs []int64

	prefix := []byte(playlistByCoursePrefix + strconv.FormatInt(courseID, 10) + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			idPart := strings.TrimPrefix(key, string(prefix))
			id, err := strconv.ParseInt(idPart, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed reverse index key %q: %w", key, err)
			}
			playlistIDs = append(playlistIDs, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, pid := range playlistIDs {
		if err := s.DeletePlaylistCourse(pid, courseID); err != nil {
			return 0, fmt.Errorf("cascade delete playlist %d: %w", pid, err)
		}
	}

	return len(playlistIDs), nil
}

// put marshals v and stores it under key.
func (s *Store) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// get loads and unmarshals the record at key into v.
func (s *Store) get(key []byte, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get record: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// delete removes key; a missing key is not an error.
func (s *Store) delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
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

func courseKey(id int64) []byte {
	return []byte(courseKeyPrefix + strconv.FormatInt(id, 10))
}

func userKey(id int64) []byte {
	return []byte(userKeyPrefix + strconv.FormatInt(id, 10))
}

func playlistKey(playlistID, courseID int64) []byte {
	return []byte(playlistKeyPrefix + strconv.FormatInt(playlistID, 10) + ":" + strconv.FormatInt(courseID, 10))
}

func playlistByCourseKey(courseID, playlistID int64) []byte {
	return []byte(playlistByCoursePrefix + strconv.FormatInt(courseID, 10) + ":" + strconv.FormatInt(playlistID, 10))
}
