// Package async runs bounded batches of independent tasks.
//
// Batch fans a slice out over a fixed number of workers, gives every item its
// own timeout, turns panics into *PanicError and reports one error slot per
// item. The stats backfill uses it to aggregate a range of days:
//
//	errs := async.Batch(ctx, days, 4, time.Minute, aggregateDay)
//	if n := async.Failed(errs); n > 0 {
//		log.Printf("%d days failed", n)
//	}
package async
