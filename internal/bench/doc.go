// Package bench runs workloads against a session and measures them.
//
// A Runner pulls items from a workload.Generator and issues them one at a
// time on a single session, timing each call from just before it is issued to
// just after its response is decoded. The samples become a Result, from which
// throughput and latency percentiles are derived.
//
// # Basic Usage
//
//	sess, err := client.Connect(ctx, host, port, client.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	runner := bench.NewRunner(nil)
//	res, err := runner.Run(ctx, sess, workload.NewPutSweep(n, 100, nil), n)
//	if err != nil {
//	    return err // the run was aborted, no partial result
//	}
//	fmt.Println(res.OpsPerSec(), res.P99LatencyMs())
//
// # Failure Semantics
//
// A transport, protocol or timeout error aborts the run and discards its
// samples. A server answering with a failure status (a GET miss, a refused
// PUT) is not an error: the operation is counted in Result.Failed and its
// latency is kept.
//
// Cancelling ctx also aborts the run, including an operation that is waiting
// on a server that never answers.
//
// # Parallel Runs
//
// RunParallel opens one session per connection and drives each with its own
// sequential runner on a worker pool. Sessions are never shared. The merged
// Result sums operations and samples over all connections and uses the
// overall wall-clock time, so OpsPerSec is the aggregate throughput.
package bench
