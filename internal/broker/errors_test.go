// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package broker

import (
	"errors"
	"io"
	"testing"

	"github.com/lectern-lms/lectern/internal/logging"
)

func TestNewPublisherRequiresURL(t *testing.T) {
	logger := logging.NewWatermillAdapter(logging.NewTestLogger(io.Discard))

	_, err := NewPublisher(PublisherConfig{}, logger)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewPublisher() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewSubscriberRequiresURL(t *testing.T) {
	logger := logging.NewWatermillAdapter(logging.NewTestLogger(io.Discard))

	_, err := NewSubscriber(&SubscriberConfig{}, logger)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewSubscriber() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewStreamManagerRequiresName(t *testing.T) {
	_, err := NewStreamManager(nil, &StreamConfig{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewStreamManager() error = %v, want ErrInvalidConfig", err)
	}
}
