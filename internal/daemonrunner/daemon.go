// Package daemonrunner is the daemon supervisor: it acquires the
// single-instance lock, opens the change-history store, starts the file
// monitor and the MCP broker, schedules prune passes, and keeps the status
// documents current through the whole lifecycle.
package daemonrunner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/curatorhq/curator/internal/config"
	"github.com/curatorhq/curator/internal/dirs"
	"github.com/curatorhq/curator/internal/docstore"
	"github.com/curatorhq/curator/internal/docstore/sqlite"
	"github.com/curatorhq/curator/internal/lockfile"
	"github.com/curatorhq/curator/internal/monitor"
	"github.com/curatorhq/curator/internal/rpc"
	"github.com/curatorhq/curator/internal/similarity"
	"github.com/curatorhq/curator/internal/status"
)

// Daemon is a running background daemon session.
type Daemon struct {
	cfg  Config
	log  *logger
	logF *lumberjack.Logger

	syncCfg   config.SyncConfig
	store     docstore.Store
	engine    *monitor.Engine
	watcher   *monitor.Watcher
	server    *rpc.Server
	scheduler gocron.Scheduler
	lock      io.Closer
	cancel    context.CancelFunc

	// Version is the daemon's build version.
	Version string
}

// New creates a daemon for cfg. Run does the actual work.
func New(cfg Config, version string) *Daemon {
	return &Daemon{
		cfg:     cfg,
		Version: version,
	}
}

// Run executes the daemon main loop until a shutdown signal or a fatal
// broker error. The daemon status document reflects running:true for
// exactly the span of this call.
func (d *Daemon) Run() error {
	d.logF, d.log = d.setupLogger()
	defer func() { _ = d.logF.Close() }()

	lock, err := d.setupLock()
	if err != nil {
		return err
	}
	d.lock = lock
	defer func() { _ = d.lock.Close() }()
	defer func() { _ = os.Remove(d.cfg.PIDFile) }()

	syncCfg := config.Sync()
	if err := syncCfg.Validate(); err != nil {
		d.log.Log("Error: invalid sync configuration: %v", err)
		return err
	}
	d.syncCfg = syncCfg

	rules := config.PathRules()
	if err := rules.Validate(); err != nil {
		d.log.Log("Error: invalid path rules: %v", err)
		return err
	}
	priorities := config.PriorityDirectories()
	roots := config.WatchRoots()

	d.log.Log("Daemon started (version: %s, collection: %s, prune interval: %v)",
		d.Version, syncCfg.DatabaseCollection, syncCfg.PruneInterval)

	d.publishDaemonStatus(true)
	defer d.publishDaemonStatus(false)

	store, err := sqlite.New(d.cfg.DBPath, syncCfg.DatabaseCollection)
	if err != nil {
		d.log.Log("Error: cannot open database: %v", err)
		return fmt.Errorf("cannot open database: %w", err)
	}
	d.store = store
	defer func() { _ = d.store.Close() }()
	d.log.Log("Database opened: %s", d.cfg.DBPath)

	sim := similarity.NewHTTPService(config.SimilarityURL())

	d.validateDirectories(roots, priorities, rules)

	d.engine = monitor.NewEngine(d.store, sim, syncCfg, config.SignificanceThresholds(), priorities)

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	defer cancel()

	if len(roots) > 0 {
		watcher, err := monitor.NewWatcher(d.engine, roots, rules, d.cfg.Debounce, d.log)
		if err != nil {
			d.log.Log("Error: cannot start watcher: %v", err)
			return fmt.Errorf("cannot start watcher: %w", err)
		}
		d.watcher = watcher
		defer func() { _ = d.watcher.Close() }()
		d.watcher.Start(ctx)
		d.log.Log("Watching %d roots", len(roots))
	} else {
		d.log.Log("Warning: no directories configured, nothing to watch")
	}

	if err := d.startScheduler(); err != nil {
		d.log.Log("Error: cannot start scheduler: %v", err)
		return err
	}
	defer func() { _ = d.scheduler.Shutdown() }()

	server, serverErrChan, err := d.startRPCServer(ctx)
	if err != nil {
		return err
	}
	d.server = server

	d.refreshMonitorStatus(ctx)

	return d.runEventLoop(ctx, serverErrChan)
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.server != nil {
		return d.server.Stop()
	}
	return nil
}

func (d *Daemon) setupLock() (io.Closer, error) {
	lock, err := lockfile.Acquire(d.cfg.LockFile, d.cfg.Home, d.Version)
	if err != nil {
		if err == lockfile.ErrLocked {
			d.log.Log("Daemon already running (lock held), exiting")
		} else {
			d.log.Log("Error acquiring daemon lock: %v", err)
		}
		return nil, err
	}

	if err := os.WriteFile(d.cfg.PIDFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0600); err != nil {
		d.log.Log("Warning: failed to write PID file: %v", err)
	}

	return lock, nil
}

// validateDirectories runs the managed-directory validator and publishes
// the report as vault.json. Validation problems are warnings, not fatal.
func (d *Daemon) validateDirectories(roots []string, priorities map[string]float64, rules config.Rules) {
	report := dirs.Validate(dirs.Config{
		Roots:       roots,
		Directories: priorities,
		Rules:       rules,
	})

	for _, issue := range report.Issues {
		d.log.Log("Warning: directory issue: %s", issue)
	}
	for _, redundancy := range report.Redundancies {
		d.log.Log("Warning: redundant directory: %s", redundancy)
	}

	now := time.Now().UTC()
	vault := status.VaultStatus{
		Issues:       report.Issues,
		Redundancies: report.Redundancies,
		Managed:      make(map[string]status.DirState, len(report.Managed)),
		CheckedAt:    &now,
	}
	for path, info := range report.Managed {
		vault.Managed[path] = status.DirState{
			Priority: info.Priority,
			Valid:    info.Valid,
			Error:    info.Error,
		}
	}
	if err := status.Write(filepath.Join(d.cfg.Home, status.VaultFile), vault); err != nil {
		d.log.Log("Warning: cannot write vault status: %v", err)
	}
}

func (d *Daemon) startScheduler() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("cannot create scheduler: %w", err)
	}
	d.scheduler = scheduler

	if _, err := scheduler.NewJob(
		gocron.DurationJob(d.syncCfg.PruneInterval),
		gocron.NewTask(d.runPrune),
		gocron.WithName("prune"),
	); err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("cannot schedule prune job: %w", err)
	}

	scheduler.Start()
	d.log.Log("Prune scheduled every %v", d.syncCfg.PruneInterval)
	return nil
}

// runPrune executes one prune pass and refreshes database.json and
// monitor.json. Store outages are logged and retried on the next tick.
func (d *Daemon) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stats, err := d.engine.Prune(ctx)
	if err != nil {
		d.log.Log("Warning: prune failed: %v", err)
		return
	}
	d.log.Log("Prune complete: %d missing, %d below floor, %d evicted, %d remaining",
		stats.RemovedMissing, stats.RemovedLowPriority, stats.Evicted, stats.Remaining)

	now := time.Now().UTC()
	db := status.DatabaseStatus{
		Collection:    d.syncCfg.DatabaseCollection,
		DocumentCount: stats.Remaining,
		LastPruneAt:   &now,
	}
	if err := status.Write(filepath.Join(d.cfg.Home, status.DatabaseFile), db); err != nil {
		d.log.Log("Warning: cannot write database status: %v", err)
	}

	d.refreshMonitorStatus(ctx)
}

func (d *Daemon) refreshMonitorStatus(ctx context.Context) {
	mon := status.MonitorStatus{}
	if d.watcher != nil {
		mon.WatchedRoots = d.watcher.Roots()
	}
	if count, err := d.engine.RecordCount(ctx); err == nil {
		mon.RecordCount = count
	} else {
		d.log.Log("Warning: cannot count records: %v", err)
	}
	if t, ok := d.engine.LastEventAt(); ok {
		mon.LastEventAt = &t
	}
	if err := status.Write(filepath.Join(d.cfg.Home, status.MonitorFile), mon); err != nil {
		d.log.Log("Warning: cannot write monitor status: %v", err)
	}
}

func (d *Daemon) publishDaemonStatus(running bool) {
	st := status.DaemonStatus{Running: running}
	if running {
		st.PID = os.Getpid()
		now := time.Now().UTC()
		st.StartedAt = &now
	}
	if err := status.Write(filepath.Join(d.cfg.Home, status.DaemonFile), st); err != nil {
		d.log.Log("Warning: cannot write daemon status: %v", err)
	}
}

// runEventLoop blocks until a shutdown signal, context cancellation, or a
// fatal broker error.
func (d *Daemon) runEventLoop(ctx context.Context, serverErrChan chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, daemonSignals...)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			if isReloadSignal(sig) {
				d.log.Log("Received reload signal, ignoring (daemon continues running)")
				continue
			}
			d.log.Log("Received signal %v, shutting down gracefully...", sig)
			d.cancel()
			if err := d.server.Stop(); err != nil {
				d.log.Log("Error stopping RPC server: %v", err)
			}
			d.log.Log("Daemon stopped")
			return nil
		case <-ctx.Done():
			d.log.Log("Context canceled, shutting down")
			if err := d.server.Stop(); err != nil {
				d.log.Log("Error stopping RPC server: %v", err)
			}
			return nil
		case err := <-serverErrChan:
			d.log.Log("RPC server failed: %v", err)
			d.cancel()
			if stopErr := d.server.Stop(); stopErr != nil {
				d.log.Log("Error stopping RPC server: %v", stopErr)
			}
			return err
		}
	}
}
