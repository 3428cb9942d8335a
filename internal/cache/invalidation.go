/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"

	"github.com/friendsincode/ministry_platform/internal/events"
)

// Invalidator drops cached brands when brand change events arrive, local or
// relayed from another instance.
type Invalidator struct {
	cache *Cache
	bus   *events.Bus
}

// NewInvalidator wires a cache to the bus.
func NewInvalidator(c *Cache, bus *events.Bus) *Invalidator {
	return &Invalidator{cache: c, bus: bus}
}

// Run listens until ctx is done.
func (i *Invalidator) Run(ctx context.Context) error {
	updated := i.bus.Subscribe(events.EventBrandUpdated)
	deleted := i.bus.Subscribe(events.EventBrandDeleted)
	defer i.bus.Unsubscribe(events.EventBrandUpdated, updated)
	defer i.bus.Unsubscribe(events.EventBrandDeleted, deleted)

	for {
		var payload events.Payload
		select {
		case <-ctx.Done():
			return nil
		case payload = <-updated:
		case payload = <-deleted:
		}
		id, _ := payload["brand_id"].(string)
		if err := i.cache.InvalidateBrand(ctx, id); err != nil {
			i.cache.logger.Debug().Err(err).Str("brand_id", id).Msg("brand invalidation failed")
		}
	}
}
