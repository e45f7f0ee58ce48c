package main

// ============================================================================
// Responsibilities:
// 1. Self-contained demonstration of the adaptive scheduling loop
// 2. Runs the simulated executor end to end, no backend required
// 3. Prints per-round progress and the final run summary
// ============================================================================

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gaiaqa/gaia-scheduler/internal/executor"
	"github.com/gaiaqa/gaia-scheduler/internal/scheduler"
	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

func main() {
	tmpDir, err := os.MkdirTemp("", "gaia_demo_*")
	if err != nil {
		log.Fatalf("Failed to create demo directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	sched := scheduler.New(scheduler.Config{
		TopNExecution: 3,
		MaxRounds:     10,
		LogPath:       filepath.Join(tmpDir, "priority_log.json"),
	}, nil)

	items := []types.TestItem{
		{ID: "TC001", Priority: types.PriorityMust, TargetURL: "https://demo.app/login", NewElements: 2},
		{ID: "TC002", Priority: types.PriorityMust, TargetURL: "https://demo.app/signup"},
		{ID: "TC003", Priority: types.PriorityShould, TargetURL: "https://demo.app/profile"},
		{ID: "TC004", Priority: types.PriorityShould, TargetURL: "https://demo.app/settings", NewElements: 1},
		{ID: "TC005", Priority: types.PriorityMay, TargetURL: "https://demo.app/about"},
		{ID: "TC006", Priority: types.PriorityMay, NoDOMChange: true},
	}

	sched.IngestItems(items)
	fmt.Printf("✓ Ingested %d test items (run %s)\n", len(items), sched.RunID())
	fmt.Printf("✓ Queue depth: %d\n\n", sched.QueueLen())

	exec := executor.NewSimulatedExecutorWithSeed(0.2, 42)

	summary, err := sched.ExecuteUntilComplete(context.Background(), exec)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	fmt.Println("📊 Final Statistics:")
	fmt.Printf("  Received:  %d\n", summary.ExecutionStats.TotalReceived)
	fmt.Printf("  Executed:  %d\n", summary.ExecutionStats.TotalExecuted)
	fmt.Printf("  Success:   %d\n", summary.ExecutionStats.TotalSuccess)
	fmt.Printf("  Failed:    %d\n", summary.ExecutionStats.TotalFailed)
	fmt.Printf("  Re-scores: %d\n", summary.ExecutionStats.RescoreCount)
	fmt.Printf("  Rounds:    %d\n", summary.StateSummary.ExecutionRounds)
	fmt.Printf("  URLs seen: %d\n", summary.StateSummary.VisitedURLs)
	fmt.Printf("  DOM sigs:  %d\n\n", summary.StateSummary.VisitedDOMSignatures)

	fmt.Printf("✓ Demo complete, %d items left in queue\n", summary.QueueSummary.RemainingItems)
}
