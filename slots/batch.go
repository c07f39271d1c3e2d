/*
batch.go - Asynchronous bulk slot computation

PURPOSE:

	Month-wide, multi-salesman calendar views need slots for many salesmen
	at once. BulkJob runs the per-salesman computations on a bounded
	worker pool, streams results on a channel, and honors context
	cancellation. The synchronous request path (Generate) stays untouched;
	this exists for the wide views and housekeeping, decoupled from it.
*/
package slots

import (
	"context"
	"sync"
	"time"

	"github.com/warp/booking-engine/engine"
)

// Result is one salesman's slice of the bulk computation.
type Result struct {
	SalesmanID engine.SalesmanID
	Slots      []engine.Slot
	Err        error
}

// BulkJob computes slots for many salesmen concurrently. A single
// BulkJob value may be reused; each Run carries its own state.
type BulkJob struct {
	Generator *Generator
	Workers   int // 0 = DefaultWorkers
}

const DefaultWorkers = 4

// Run starts the job and returns a channel that receives one Result per
// salesman. The channel is closed when all work is done or the context
// is cancelled; cancelled salesmen simply never produce a result.
func (j *BulkJob) Run(ctx context.Context, salesmen []engine.SalesmanID, from, to time.Time, kind engine.BookingKind) <-chan Result {
	workers := j.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	jobs := make(chan engine.SalesmanID)
	results := make(chan Result, len(salesmen))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if ctx.Err() != nil {
					return
				}
				slots, err := j.Generator.Generate(ctx, id, from, to, kind)
				select {
				case results <- Result{SalesmanID: id, Slots: slots, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range salesmen {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// Collect drains a Run channel into a map, stopping early on context
// cancellation. Convenience for callers that want the whole view.
func Collect(ctx context.Context, results <-chan Result) (map[engine.SalesmanID][]engine.Slot, error) {
	out := make(map[engine.SalesmanID][]engine.Slot)
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return out, nil
			}
			if r.Err != nil {
				return out, r.Err
			}
			out[r.SalesmanID] = r.Slots
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}
