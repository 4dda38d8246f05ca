// Package bdixprobe tests which servers in a catalog are reachable from the
// current network.
//
// It probes every endpoint concurrently under a configurable limit, applies a
// per-probe timeout, and returns a report with the working endpoints ranked
// by latency. The same engine powers the bdixprobe CLI; this package is the
// embeddable form for programs that want the results directly.
//
// # Quick start
//
//	tester, err := bdixprobe.New(
//	    bdixprobe.WithCatalogFile("servers.txt"),
//	    bdixprobe.WithTimeout(3*time.Second),
//	    bdixprobe.WithConcurrency(16),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rep, err := tester.Run(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, res := range rep.Reachable {
//	    fmt.Printf("%s  %s\n", res.Name, res.Latency)
//	}
//
// With no catalog configured the built-in server list is probed.
//
// # Watching progress
//
// Register a callback to observe results as they arrive:
//
//	bdixprobe.WithResultCallback(func(res bdixprobe.Result) {
//	    fmt.Printf("%s: %s\n", res.Name, res.Outcome)
//	})
//
// Callbacks run synchronously on the result stream; keep them fast or hand
// the work to a goroutine.
//
// # Cancellation
//
// Run honours its context: cancel it and in-flight probes are interrupted,
// with whatever completed so far still present in the returned report.
package bdixprobe
