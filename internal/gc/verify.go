package gc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Verify is the self-check entry point of spec §8 property P6: "for
// every live header reachable by linear scan of any arena, check()
// returns true." It must only run between mutator operations, never
// concurrently with an in-flight GC (same single-mutator discipline as
// every other public Collector method).
//
// The four scan domains — copying-active, copying-spare, pinned
// arenas, large table — share no state and are scanned concurrently via
// an errgroup, grounded on the domain-stack wiring plan (SPEC_FULL §3):
// the teacher's own diagnostic sweeps run sequentially, but nothing here
// prevents fanning the independent regions out, so Verify does.
func (c *Collector) Verify() error {
	c.assertNotInGC("verify")

	g, _ := errgroup.WithContext(context.Background())

	g.Go(func() error { return scanArena(c.copying.active, "copying-active") })
	g.Go(func() error { return scanArena(c.copying.spare, "copying-spare") })

	g.Go(func() error {
		for i, a := range c.pinned.arenas {
			if err := scanArena(a, fmt.Sprintf("pinned[%d]", i)); err != nil {
				return err
			}
		}

		return nil
	})

	g.Go(func() error {
		var firstErr error

		c.large.iterate(func(h *Header) {
			if firstErr != nil {
				return
			}

			if !h.check() {
				firstErr = fmt.Errorf("verify: corrupt large-region header at %p", h)
			}
		})

		return firstErr
	})

	return g.Wait()
}

func scanArena(a *arena, name string) error {
	var firstErr error

	a.iterate(func(h *Header) {
		if firstErr != nil {
			return
		}

		if !h.check() {
			firstErr = fmt.Errorf("verify: corrupt header in %s at %p", name, h)
		}
	})

	return firstErr
}
