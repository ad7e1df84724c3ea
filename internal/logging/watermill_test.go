// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

func TestWatermillAdapterLevels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermillAdapter(NewTestLogger(&buf))

	adapter.Info("subscribed", watermill.LogFields{"topic": "events.course"})
	adapter.Error("publish failed", errors.New("boom"), nil)

	out := buf.String()
	if !strings.Contains(out, `"topic":"events.course"`) {
		t.Errorf("info fields missing: %s", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("error not recorded: %s", out)
	}
}

func TestWatermillAdapterWith(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermillAdapter(NewTestLogger(&buf))

	child := adapter.With(watermill.LogFields{"handler": "course-events"})
	child.Info("running", nil)

	if !strings.Contains(buf.String(), `"handler":"course-events"`) {
		t.Errorf("With fields not carried: %s", buf.String())
	}
}
