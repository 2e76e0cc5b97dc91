// Package smp brings additional CPU cores online, spec.md §4.7/§5's
// "bringing AP cores online is optional." Real AP bring-up means
// writing an INIT-SIPI-SIPI sequence to each core's LAPIC and waiting
// for it to signal readiness from a trampoline page; a hosted process
// has no APs to signal, so each "core" is a goroutine running its
// per-core init function, and golang.org/x/sync/errgroup collects the
// first failure exactly the way a real bring-up loop would abort on
// the first AP that never signals readiness.
package smp

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"nyxkernel/boot"
	"nyxkernel/vm"
)

// Core is the per-core state bring-up hands to each AP's init
// function: which descriptor it came from, and the address space
// whose shootdown callback it should install (every address space in
// this kernel is shared across cores, so each AP needs the same
// cross-core invalidation wiring the BSP installed for itself).
type Core struct {
	Desc boot.CPUDesc
	AS   *vm.AddrSpace
}

// ShootdownFunc is the cross-core TLB invalidation callback; BringUp
// installs it once on the address space every Core shares, so every
// core can trigger a TLB invalidation that reaches every other core,
// matching spec.md 4.5's "other cores" bit of the invlpg-vs-IPI
// distinction.
type ShootdownFunc func(startva uint64, pgcount int)

// BringUp starts one init goroutine per non-bootstrap CPU in h.CPUs,
// each running initFn(Core{...}), and waits for all of them to finish
// initializing (a real AP signals readiness once; a hosted one simply
// returns). shootdown, if non-nil, is installed once on as via
// SetShootdown before any AP starts; every Core receives that same as,
// so every core can reach every other core's TLB.
// The first initFn error aborts bring-up and is returned; remaining
// cores that had already started are not forcibly stopped (matching a
// real kernel, which cannot un-send an IPI once issued).
func BringUp(ctx context.Context, h *boot.Handoff, as *vm.AddrSpace, shootdown ShootdownFunc, initFn func(Core) error) error {
	if shootdown != nil {
		as.SetShootdown(shootdown)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, cpu := range h.CPUs {
		if cpu.IsBSP {
			continue
		}
		cpu := cpu
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := initFn(Core{Desc: cpu, AS: as}); err != nil {
				return fmt.Errorf("smp: AP lapic=%d: %w", cpu.LapicID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
