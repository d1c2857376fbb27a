// Package executor dispatches extraction jobs and hands back futures.
//
// Local runs jobs on a bounded goroutine pool, Inline runs them
// synchronously inside Submit, and Process runs each job in a separate
// "asrprep worker" child process. Process reports itself as external so
// the pipeline splits partitions into more, smaller jobs.
package executor
