// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPublish(t *testing.T) {
	before := testutil.ToFloat64(BrokerMessagesPublished.WithLabelValues("events.course"))
	RecordPublish("events.course", nil)
	after := testutil.ToFloat64(BrokerMessagesPublished.WithLabelValues("events.course"))
	if after != before+1 {
		t.Errorf("published counter = %v, want %v", after, before+1)
	}

	errBefore := testutil.ToFloat64(BrokerPublishErrors.WithLabelValues("events.course"))
	RecordPublish("events.course", errors.New("nats: timeout"))
	errAfter := testutil.ToFloat64(BrokerPublishErrors.WithLabelValues("events.course"))
	if errAfter != errBefore+1 {
		t.Errorf("error counter = %v, want %v", errAfter, errBefore+1)
	}

	// Failed publishes must not count as published.
	final := testutil.ToFloat64(BrokerMessagesPublished.WithLabelValues("events.course"))
	if final != after {
		t.Errorf("published counter moved on failed publish: %v -> %v", after, final)
	}
}

func TestRecordReplicaApply(t *testing.T) {
	before := testutil.ToFloat64(ReplicaApplies.WithLabelValues("course", "CREATE"))
	RecordReplicaApply("course", "CREATE", nil)
	after := testutil.ToFloat64(ReplicaApplies.WithLabelValues("course", "CREATE"))
	if after != before+1 {
		t.Errorf("apply counter = %v, want %v", after, before+1)
	}

	errBefore := testutil.ToFloat64(ReplicaApplyErrors.WithLabelValues("course", "DELETE"))
	RecordReplicaApply("course", "DELETE", errors.New("store closed"))
	errAfter := testutil.ToFloat64(ReplicaApplyErrors.WithLabelValues("course", "DELETE"))
	if errAfter != errBefore+1 {
		t.Errorf("apply error counter = %v, want %v", errAfter, errBefore+1)
	}
}

func TestSetConnected(t *testing.T) {
	SetConnected(true)
	if got := testutil.ToFloat64(BrokerConnectionState); got != 1 {
		t.Errorf("connection state = %v, want 1", got)
	}
	SetConnected(false)
	if got := testutil.ToFloat64(BrokerConnectionState); got != 0 {
		t.Errorf("connection state = %v, want 0", got)
	}
}

func TestRecordSignalFetch(t *testing.T) {
	before := testutil.ToFloat64(SignalsUnavailable.WithLabelValues("paired"))
	RecordSignalFetch("paired", 5*time.Millisecond, nil)
	if got := testutil.ToFloat64(SignalsUnavailable.WithLabelValues("paired")); got != before {
		t.Errorf("unavailable counter moved on success: %v -> %v", before, got)
	}

	RecordSignalFetch("paired", 3*time.Second, errors.New("context deadline exceeded"))
	if got := testutil.ToFloat64(SignalsUnavailable.WithLabelValues("paired")); got != before+1 {
		t.Errorf("unavailable counter = %v, want %v", got, before+1)
	}
}

func TestConcurrentRecording(t *testing.T) {
	const goroutines = 16
	const perGoroutine = 100

	before := testutil.ToFloat64(EventsDeduplicated)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				RecordDeduplicated()
			}
		}()
	}
	wg.Wait()

	after := testutil.ToFloat64(EventsDeduplicated)
	if after != before+goroutines*perGoroutine {
		t.Errorf("dedup counter = %v, want %v", after, before+goroutines*perGoroutine)
	}
}
