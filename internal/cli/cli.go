// ============================================================================
// GAIA Scheduler CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Provides user-friendly command line interface based on Cobra framework
//
// Command Structure:
//   gaia-scheduler                  # Root command
//   ├── run                        # Start an exploration run
//   │   ├── --file, -f            # Initial checklist JSON file
//   │   ├── --backend             # Remote executor address (gRPC)
//   │   └── --resume              # Resume from the latest snapshot
//   ├── ingest                     # Validate / stage a checklist file
//   │   └── --file, -f            # Checklist JSON file
//   ├── backend                    # Start a simulated executor backend
//   │   └── --port                # gRPC listen port
//   ├── status                     # Show latest run summary
//   ├── --version                  # Display version information
//   └── --help                     # Display help information
//
// Configuration Management:
//   Uses YAML format config file (default: configs/default.yaml)
//   Configuration items include:
//   - scheduler: queue size, batch size, rounds, completion threshold
//   - audit: priority log and durable trail paths
//   - report: snapshot / summary directory
//   - ingest: drop directory watched for checklist files
//   - executor: backend address, per-item timeout, simulated failure rate
//   - metrics: Prometheus monitoring configuration
//
//   Environment overrides (picked up from a .env file at startup):
//   - GAIA_CONFIG:       default --config path
//   - GAIA_BACKEND_ADDR: overrides executor.backend_addr (flag still wins)
//
// run Command:
//   Starts a complete exploration run:
//   1. Load config file
//   2. Create scheduler (restore snapshot when --resume)
//   3. Start Metrics HTTP server (if enabled)
//   4. Watch the ingest drop directory for new checklists (if configured)
//   5. Execute until completion criteria met
//   6. Persist audit log, snapshot and run summary
//
//   Examples:
//     ./gaia-scheduler run -f checklist.json
//     ./gaia-scheduler run --backend localhost:50051 --resume
//
// Signal Handling:
//   run captures SIGINT / SIGTERM and shuts down gracefully: the current
//   item finishes, then the audit log, snapshot and summary are written.
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"

	"github.com/gaiaqa/gaia-scheduler/internal/audit"
	"github.com/gaiaqa/gaia-scheduler/internal/executor"
	"github.com/gaiaqa/gaia-scheduler/internal/ingest"
	"github.com/gaiaqa/gaia-scheduler/internal/metrics"
	"github.com/gaiaqa/gaia-scheduler/internal/report"
	"github.com/gaiaqa/gaia-scheduler/internal/scheduler"
	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// Config represents the complete system configuration structure
// Maps config file fields through YAML tags
type Config struct {
	Scheduler struct {
		MaxQueueSize        int     `yaml:"max_queue_size"`
		TopNExecution       int     `yaml:"top_n_execution"`
		MaxRounds           int     `yaml:"max_rounds"`
		CompletionThreshold float64 `yaml:"completion_threshold"`
	} `yaml:"scheduler"`

	Audit struct {
		LogPath       string `yaml:"log_path"`
		TrailPath     string `yaml:"trail_path"`
		SyncOnAppend  bool   `yaml:"sync_on_append"`
	} `yaml:"audit"`

	Report struct {
		Dir         string `yaml:"dir"`
		KeepBackups int    `yaml:"keep_backups"`
	} `yaml:"report"`

	Ingest struct {
		WatchDir string `yaml:"watch_dir"`
	} `yaml:"ingest"`

	Executor struct {
		BackendAddr string   `yaml:"backend_addr"`
		Timeout     duration `yaml:"timeout"`
		FailureRate float64  `yaml:"failure_rate"`
	} `yaml:"executor"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

// duration accepts Go duration strings ("30s", "1m") in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

var configFile string

// defaultConfigPath resolves the default --config value; GAIA_CONFIG (set
// directly or via a .env file loaded at startup) overrides the built-in path.
func defaultConfigPath() string {
	if env := os.Getenv("GAIA_CONFIG"); env != "" {
		return env
	}
	return "configs/default.yaml"
}

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gaia-scheduler",
		Short: "GAIA Scheduler: adaptive test scheduling for web exploration",
		Long: `GAIA Scheduler orders automated web-app test items adaptively:
- Priority scoring (MUST/SHOULD/MAY) against exploration state
- DOM-change driven queue re-scoring
- Failure retry with accumulated bonus
- Durable audit trail and resumable runs`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigPath(), "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildIngestCommand())
	rootCmd.AddCommand(buildBackendCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

// ============================================================================
// run
// ============================================================================

func buildRunCommand() *cobra.Command {
	var checklistFile string
	var backendAddr string
	var resume bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an adaptive exploration run",
		Long:  "Ingest a checklist, execute items in priority order and persist the run artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(checklistFile, backendAddr, resume)
		},
	}

	cmd.Flags().StringVarP(&checklistFile, "file", "f", "", "initial checklist JSON file")
	cmd.Flags().StringVar(&backendAddr, "backend", "", "remote executor address (overrides config)")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the latest snapshot")

	return cmd
}

func runScheduler(checklistFile, backendAddr string, resume bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	sched := scheduler.New(scheduler.Config{
		MaxQueueSize:        cfg.Scheduler.MaxQueueSize,
		TopNExecution:       cfg.Scheduler.TopNExecution,
		MaxRounds:           cfg.Scheduler.MaxRounds,
		CompletionThreshold: cfg.Scheduler.CompletionThreshold,
		LogPath:             cfg.Audit.LogPath,
	}, collector)

	if cfg.Audit.TrailPath != "" {
		trail, err := audit.OpenTrail(cfg.Audit.TrailPath, cfg.Audit.SyncOnAppend)
		if err != nil {
			return fmt.Errorf("failed to open audit trail: %w", err)
		}
		defer trail.Close()
		sched.AttachTrail(trail)
	}

	reporter := report.NewManager(cfg.Report.Dir)
	if resume {
		snap, err := reporter.LoadSnapshot()
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		sched.Restore(snap)
		fmt.Printf("Resumed run %s (round %d, %d pending)\n",
			snap.RunID, snap.ExecutionRound, len(snap.PendingItems))
	}

	if checklistFile != "" {
		items, err := ingest.LoadChecklistFile(checklistFile)
		if err != nil {
			return fmt.Errorf("failed to load checklist: %w", err)
		}
		sched.IngestItems(items)
		fmt.Printf("Ingested %d items from %s\n", len(items), checklistFile)
	}

	exec, cleanup, err := buildExecutor(cfg, backendAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics.Port)
		})
	}

	if cfg.Ingest.WatchDir != "" {
		watcher, err := ingest.NewWatcher(cfg.Ingest.WatchDir)
		if err != nil {
			return fmt.Errorf("failed to watch ingest directory: %w", err)
		}
		defer watcher.Close()
		g.Go(func() error {
			return watcher.Run(gctx)
		})
		g.Go(func() error {
			for items := range watcher.Items() {
				sched.IngestItems(items)
				fmt.Printf("Ingested %d items from drop directory\n", len(items))
			}
			return nil
		})
	}

	fmt.Printf("Run %s started\n", sched.RunID())

	summary, runErr := sched.ExecuteUntilComplete(ctx, exec)

	stop()
	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "background task error: %v\n", err)
	}

	if err := reporter.WriteSnapshotWithBackup(sched.Snapshot(), cfg.Report.KeepBackups); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write snapshot: %v\n", err)
	}
	if err := reporter.WriteSummary(summary); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write run summary: %v\n", err)
	}

	printSummary(summary)
	return runErr
}

// buildExecutor selects the remote backend when an address is configured,
// otherwise falls back to the simulated executor.
func buildExecutor(cfg *Config, backendAddr string) (executor.Executor, func(), error) {
	addr := backendAddr
	if addr == "" {
		addr = cfg.Executor.BackendAddr
	}

	var exec executor.Executor
	cleanup := func() {}

	if addr != "" {
		conn, err := executor.Dial(addr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to backend: %w", err)
		}
		exec = executor.NewGRPCExecutor(conn)
		cleanup = func() { conn.Close() }
		fmt.Printf("Using remote executor at %s\n", addr)
	} else {
		exec = executor.NewSimulatedExecutor(cfg.Executor.FailureRate)
		fmt.Println("Using simulated executor (no backend configured)")
	}

	if cfg.Executor.Timeout > 0 {
		exec = executor.WithTimeout(exec, time.Duration(cfg.Executor.Timeout))
	}
	return exec, cleanup, nil
}

func serveMetrics(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Metrics server on http://localhost:%d/metrics\n", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// ============================================================================
// ingest
// ============================================================================

func buildIngestCommand() *cobra.Command {
	var checklistFile string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Validate a checklist file and stage it for a running scheduler",
		Long:  "Parse a checklist JSON file, report the accepted items and copy it into the watched drop directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checklistFile == "" {
				return fmt.Errorf("checklist file is required (use --file or -f)")
			}
			return stageChecklist(checklistFile)
		},
	}

	cmd.Flags().StringVarP(&checklistFile, "file", "f", "", "checklist JSON file")
	cmd.MarkFlagRequired("file")

	return cmd
}

func stageChecklist(path string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	items, err := ingest.LoadChecklistFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse checklist: %w", err)
	}
	fmt.Printf("Parsed %d valid items from %s\n", len(items), path)

	if cfg.Ingest.WatchDir == "" {
		fmt.Println("No drop directory configured; nothing staged")
		return nil
	}

	if err := os.MkdirAll(cfg.Ingest.WatchDir, 0755); err != nil {
		return fmt.Errorf("failed to create drop directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read checklist: %w", err)
	}

	dst := filepath.Join(cfg.Ingest.WatchDir,
		fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(path)))
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to stage checklist: %w", err)
	}

	fmt.Printf("Staged checklist at %s\n", dst)
	return nil
}

// ============================================================================
// backend
// ============================================================================

func buildBackendCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Start a simulated executor backend",
		Long:  "Serve the executor gRPC service backed by the simulated executor, for local end-to-end runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackend(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 50051, "gRPC listen port")

	return cmd
}

func runBackend(port int) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	grpcServer := grpc.NewServer()
	executor.RegisterExecutorServer(grpcServer, executor.NewSimulatedExecutor(cfg.Executor.FailureRate))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	fmt.Printf("Executor backend listening on :%d (failure rate %.2f)\n", port, cfg.Executor.FailureRate)
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("backend server failed: %w", err)
	}

	fmt.Println("Backend stopped")
	return nil
}

// ============================================================================
// status
// ============================================================================

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest run summary",
		Long:  "Display statistics persisted by the most recent exploration run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("\n╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║           GAIA Scheduler Status                           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("📋 Configuration:")
	fmt.Printf("  └─ Config File:      %s\n", configFile)
	fmt.Printf("  └─ Queue Size:       %d\n", cfg.Scheduler.MaxQueueSize)
	fmt.Printf("  └─ Batch Size:       %d\n", cfg.Scheduler.TopNExecution)
	fmt.Printf("  └─ Max Rounds:       %d\n", cfg.Scheduler.MaxRounds)
	fmt.Printf("  └─ MUST Threshold:   %.0f%%\n", cfg.Scheduler.CompletionThreshold*100)
	fmt.Println()

	fmt.Println("💾 Artifacts:")
	fmt.Printf("  ├─ Audit Log:        %s\n", cfg.Audit.LogPath)
	fmt.Printf("  ├─ Audit Trail:      %s\n", cfg.Audit.TrailPath)
	fmt.Printf("  └─ Report Directory: %s\n", cfg.Report.Dir)
	fmt.Println()

	reporter := report.NewManager(cfg.Report.Dir)
	summary, err := reporter.LoadSummary()
	if err != nil {
		if err == report.ErrSummaryNotFound {
			fmt.Println("📊 Run Statistics:")
			fmt.Println("  └─ No completed run found (run 'gaia-scheduler run' first)")
			fmt.Println()
			return nil
		}
		return err
	}

	printSummary(summary)

	fmt.Println("📡 Metrics:")
	if cfg.Metrics.Enabled {
		fmt.Printf("  └─ Status: ✅ Enabled on http://localhost:%d/metrics\n", cfg.Metrics.Port)
	} else {
		fmt.Println("  └─ Status: ⚠️  Disabled")
	}
	fmt.Println()

	fmt.Println("═══════════════════════════════════════════════════════════")
	return nil
}

func printSummary(summary types.RunSummary) {
	total := summary.ExecutionStats.TotalExecuted

	fmt.Println("📊 Run Statistics:")
	fmt.Printf("  ├─ Run ID:         %s\n", summary.RunID)
	fmt.Printf("  ├─ Received:       %d\n", summary.ExecutionStats.TotalReceived)
	fmt.Printf("  ├─ Executed:       %d\n", total)
	fmt.Printf("  ├─ ✅ Success:      %d\n", summary.ExecutionStats.TotalSuccess)
	fmt.Printf("  ├─ ❌ Failed:       %d\n", summary.ExecutionStats.TotalFailed)
	fmt.Printf("  ├─ 🔄 Re-scores:    %d\n", summary.ExecutionStats.RescoreCount)
	fmt.Printf("  └─ Rounds:         %d\n", summary.StateSummary.ExecutionRounds)
	fmt.Println()

	fmt.Println("🌐 Exploration:")
	fmt.Printf("  ├─ Visited URLs:   %d\n", summary.StateSummary.VisitedURLs)
	fmt.Printf("  ├─ DOM Signatures: %d\n", summary.StateSummary.VisitedDOMSignatures)
	fmt.Printf("  └─ Queue Remains:  %d\n", summary.QueueSummary.RemainingItems)
	fmt.Println()

	if total > 0 {
		successRate := float64(summary.ExecutionStats.TotalSuccess) / float64(total) * 100
		fmt.Printf("📈 Success Rate: %.1f%%\n", successRate)
		fmt.Println()
	}
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	// Environment beats the file; the --backend flag still beats both.
	if addr := os.Getenv("GAIA_BACKEND_ADDR"); addr != "" {
		cfg.Executor.BackendAddr = addr
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Scheduler.MaxQueueSize <= 0 {
		cfg.Scheduler.MaxQueueSize = 100
	}
	if cfg.Scheduler.TopNExecution <= 0 {
		cfg.Scheduler.TopNExecution = 5
	}
	if cfg.Scheduler.MaxRounds <= 0 {
		cfg.Scheduler.MaxRounds = 20
	}
	if cfg.Scheduler.CompletionThreshold <= 0 {
		cfg.Scheduler.CompletionThreshold = 0.9
	}
	if cfg.Audit.LogPath == "" {
		cfg.Audit.LogPath = "data/priority_log.json"
	}
	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "data/report"
	}
	if cfg.Report.KeepBackups <= 0 {
		cfg.Report.KeepBackups = 3
	}
	if cfg.Metrics.Port <= 0 {
		cfg.Metrics.Port = 9090
	}
}
