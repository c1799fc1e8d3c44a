// Package queue provides the Redis work queue used to parse reports on
// remote workers.
//
// A client submits one WorkItem per report to the queue of the report's
// tool. Workers (package tool/worker) pop items, parse the report and
// publish a Result carrying the issues to the job's results channel.
//
// # Redis Key Schema
//
// All keys share a prefix, "warnings" by default:
//   - <prefix>:<tool>:queue - List for work items (LPUSH/BRPOP)
//   - <prefix>:<tool>:meta - Hash for tool metadata
//   - <prefix>:<tool>:health - String with 30s TTL for heartbeat
//   - <prefix>:<tool>:workers - Integer counter for active workers
//   - <prefix>:tools:available - Set of all served tool IDs
//   - <prefix>:results:<jobID> - Pub/Sub channel for job results
//
// # Usage
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{URL: "redis://localhost:6379"})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	items := queue.NewJob("findbugs", "a/spotbugsXml.xml", "b/spotbugsXml.xml")
//	results, err := queue.Submit(ctx, client, items)
//	if err != nil {
//		return err
//	}
//	all, err := queue.Collect(ctx, results, len(items))
//
// RedisClient is safe for concurrent use by multiple goroutines.
package queue
