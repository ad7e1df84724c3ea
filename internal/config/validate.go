// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for structural errors using the
// validate struct tags, then applies cross-field rules the tags cannot
// express. Returns the first error found.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			ve := verrs[0]
			return fmt.Errorf("invalid %s: failed %q constraint (value %v)",
				fieldPath(ve), ve.Tag(), ve.Value())
		}
		return fmt.Errorf("config validation: %w", err)
	}

	return c.validateCrossField()
}

// validateCrossField applies rules that span multiple fields.
func (c *Config) validateCrossField() error {
	if c.Broker.EmbeddedServer && !strings.Contains(c.Broker.URL, "127.0.0.1") && !strings.Contains(c.Broker.URL, "localhost") {
		return fmt.Errorf("broker.url %q must point at localhost when broker.embedded_server is set", c.Broker.URL)
	}

	if c.Broker.EmbeddedServer && c.Broker.StoreDir == "" {
		return errors.New("broker.store_dir is required when broker.embedded_server is set")
	}

	if !c.Store.InMemory && c.Store.Path == "" {
		return errors.New("store.path is required unless store.in_memory is set")
	}

	if c.Recommend.PairedLimit > c.Recommend.Limit {
		return fmt.Errorf("recommend.paired_limit (%d) must not exceed recommend.limit (%d)",
			c.Recommend.PairedLimit, c.Recommend.Limit)
	}

	for _, topic := range []string{"events.user", "events.course", "events.interaction"} {
		if c.Router.PoisonTopic == topic {
			return fmt.Errorf("router.poison_topic %q collides with a domain topic", c.Router.PoisonTopic)
		}
	}

	return nil
}

// fieldPath renders a validator namespace like "Config.Broker.URL" as the
// koanf-style path "broker.url" for readable error messages.
func fieldPath(ve validator.FieldError) string {
	ns := ve.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}
