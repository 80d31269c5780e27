// Package workers sizes and runs the CLI's batch worker pool.
//
// [Count] derives a worker count from GOMAXPROCS (which follows container
// CPU quotas) and a task multiplier; IMAGELITE_WORKERS overrides it. [Each]
// fans a slice of items out to that many goroutines and collects one error
// per item in input order.
//
//	errs := workers.Each(ctx, workers.ForMixed(8), files, func(ctx context.Context, f string) error {
//	    _, err := engine.Transform(ctx, f, req)
//	    return err
//	})
package workers
