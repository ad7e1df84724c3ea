// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package broker

import (
	"testing"
	"time"

	"github.com/lectern-lms/lectern/internal/config"
	"github.com/lectern-lms/lectern/internal/event"
)

func TestDefaultPublisherConfig(t *testing.T) {
	cfg := DefaultPublisherConfig("nats://127.0.0.1:4222")

	if cfg.MaxReconnects != -1 {
		t.Errorf("MaxReconnects = %d, want -1 (unlimited)", cfg.MaxReconnects)
	}
	if cfg.ReconnectWait != 5*time.Second {
		t.Errorf("ReconnectWait = %v, want 5s", cfg.ReconnectWait)
	}
	if !cfg.EnableTrackMsgID {
		t.Error("EnableTrackMsgID = false, want true")
	}
}

func TestDefaultSubscriberConfig(t *testing.T) {
	cfg := DefaultSubscriberConfig("nats://127.0.0.1:4222")

	if cfg.MaxReconnects != -1 {
		t.Errorf("MaxReconnects = %d, want -1 (unlimited)", cfg.MaxReconnects)
	}
	if cfg.ReconnectWait != 5*time.Second {
		t.Errorf("ReconnectWait = %v, want 5s", cfg.ReconnectWait)
	}
	if cfg.SubscribersCount != 1 {
		t.Errorf("SubscribersCount = %d, want 1 for ordered consumption", cfg.SubscribersCount)
	}
	if cfg.StreamName == "" {
		t.Error("StreamName is empty, want stream binding")
	}
}

func TestDefaultStreamConfigCoversAllTopics(t *testing.T) {
	cfg := DefaultStreamConfig()

	want := map[string]bool{
		event.TopicUserEvents:   false,
		event.TopicCourseEvents: false,
		event.TopicInteractions: false,
		event.TopicDeadLetter:   false,
	}
	for _, subj := range cfg.Subjects {
		if _, ok := want[subj]; !ok {
			t.Errorf("unexpected stream subject %q", subj)
			continue
		}
		want[subj] = true
	}
	for subj, seen := range want {
		if !seen {
			t.Errorf("stream subjects missing %q", subj)
		}
	}
}

func TestFromConfig(t *testing.T) {
	appCfg := &config.BrokerConfig{
		URL:           "nats://10.1.2.3:4222",
		StoreDir:      "/var/lib/lectern/js",
		MaxMemory:     1 << 20,
		MaxStore:      1 << 22,
		ReconnectWait: 5 * time.Second,
		StreamName:    "DOMAIN_EVENTS",
		RetentionDays: 3,
		DurableName:   "replica-a",
		QueueGroup:    "replicas",
	}

	pub, sub, srv, stream := FromConfig(appCfg)

	if pub.URL != appCfg.URL || sub.URL != appCfg.URL {
		t.Errorf("URL not propagated: pub=%q sub=%q", pub.URL, sub.URL)
	}
	if pub.ReconnectWait != 5*time.Second || sub.ReconnectWait != 5*time.Second {
		t.Errorf("ReconnectWait not propagated: pub=%v sub=%v", pub.ReconnectWait, sub.ReconnectWait)
	}
	if sub.DurableName != "replica-a" || sub.QueueGroup != "replicas" {
		t.Errorf("consumer identity not propagated: %+v", sub)
	}
	if srv.StoreDir != appCfg.StoreDir {
		t.Errorf("StoreDir = %q, want %q", srv.StoreDir, appCfg.StoreDir)
	}
	if stream.MaxAge != 3*24*time.Hour {
		t.Errorf("stream MaxAge = %v, want 72h", stream.MaxAge)
	}
}
