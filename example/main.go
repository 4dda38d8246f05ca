package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shihabalter/bdixprobe"
)

func main() {
	// start mock servers (see mock_server.go)
	addrs := StartMockServerFarm()
	time.Sleep(100 * time.Millisecond)

	fmt.Println()
	fmt.Println("  bdixprobe demo: probing a mock server farm")
	fmt.Println("  (one fast, one slow, one erroring, one silent, one dead)")
	fmt.Println()

	tester, err := bdixprobe.New(
		bdixprobe.WithEndpoint("fast", addrs.Fast),
		bdixprobe.WithEndpoint("slow", addrs.Slow),
		bdixprobe.WithEndpoint("erroring", addrs.Erroring),
		bdixprobe.WithEndpoint("silent", addrs.Silent),
		bdixprobe.WithEndpoint("dead", addrs.Dead),
		bdixprobe.WithTimeout(2*time.Second),
		bdixprobe.WithConcurrency(3),
		bdixprobe.WithResultCallback(func(res bdixprobe.Result) {
			mark := "✗"
			if res.Outcome == bdixprobe.Reachable {
				mark = "✓"
			}
			fmt.Printf("  %s %-10s %-12s %s\n", mark, res.Name, res.Outcome, res.Latency.Round(time.Millisecond))
		}),
	)
	if err != nil {
		slog.Error("failed to create tester", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := tester.Run(ctx)
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("  %d of %d reachable, fastest first:\n", len(rep.Reachable), len(rep.Results))
	for i, res := range rep.Reachable {
		fmt.Printf("  %d. %s (%s)\n", i+1, res.Name, res.Latency.Round(time.Millisecond))
	}
	fmt.Println()
}
