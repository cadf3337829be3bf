// Package slot claims and releases display slots.
//
// Claiming slot N takes two steps against the shared namespace:
//
//  1. Exclusively create the lock marker and write our PID into it.
//  2. Bind and listen on the bind point.
//
// Step 1 is the mutual-exclusion primitive: of any number of allocators
// racing for N, exactly one creates the marker. Step 2 can still fail, for
// example when a stale bind point survived its lock marker. The marker from
// step 1 is then removed before trying N+1, so a marker never outlives a
// failed claim.
//
//	alloc := slot.New(ns, slot.WithMaxSlots(cfg.MaxSlots))
//	claim, err := alloc.Claim(ctx)
//	if err != nil {
//	    return err // errors.Is(err, slot.ErrExhausted)
//	}
//	defer claim.Release()
//
// Release is idempotent and tolerates artifacts that are already gone.
package slot
