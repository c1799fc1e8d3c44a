// Package worker runs report parsing as a Redis queue worker.
//
// # Overview
//
// A worker pops parse requests (queue.WorkItem) from the queues of the tools
// it serves, parses each report with a warnings.Engine and publishes a
// queue.Result with the issues to the job's results channel. Report paths are
// resolved on the worker, so workers need the same view of the files as the
// submitter, e.g. a shared volume.
//
//	engine := warnings.New(warnings.WithConfig(cfg))
//	err := worker.Run(engine, worker.Options{
//	    Tools:  []string{"findbugs", "spotbugs"},
//	    Config: cfg.Worker,
//	})
//
// # Concurrency
//
// Concurrency goroutines pop from all served queues with one BRPOP each. A
// parse failure is published as an error Result; it never stops a goroutine.
//
// # Graceful Shutdown
//
// Run cancels its context on SIGTERM or SIGINT. Goroutines stop popping,
// finish and publish the item in hand, and exit. Serve returns once all have
// exited, or with an error after ShutdownTimeout. The worker count of every
// served tool is decremented on the way out.
//
// # Discovery
//
// On start the worker registers the metadata of every served tool and
// increments its worker count; a heartbeat refreshes the health keys every
// HeartbeatInterval. See package queue for the key schema.
package worker
