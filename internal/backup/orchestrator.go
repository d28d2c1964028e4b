// Package backup runs the OVH private database dump workflow.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/imedwei/ovh-privatedb-backup/internal/artifact"
	"github.com/imedwei/ovh-privatedb-backup/internal/config"
	"github.com/imedwei/ovh-privatedb-backup/internal/health"
	"github.com/imedwei/ovh-privatedb-backup/internal/metrics"
	"github.com/imedwei/ovh-privatedb-backup/internal/privatedb"
	"github.com/imedwei/ovh-privatedb-backup/internal/ratelimit"
	"github.com/imedwei/ovh-privatedb-backup/internal/storage"
)

const (
	toolName = "ovh-privatedb-backup"
	version  = "1.0.0"
)

// Orchestrator coordinates a dump run: trigger, poll, probe, download and
// optionally mirror.
type Orchestrator struct {
	config      *config.Config
	api         privatedb.API
	probe       artifact.Probe
	downloader  *artifact.Downloader
	storage     storage.Storage
	rateLimiter *ratelimit.Limiter
	sleeper     Sleeper
	logger      *slog.Logger

	mu         sync.RWMutex
	phase      Phase
	phaseSince time.Time
}

// NewOrchestrator creates a new dump orchestrator. store may be nil when no
// mirror is configured.
func NewOrchestrator(cfg *config.Config, api privatedb.API, probe artifact.Probe, store storage.Storage, logger *slog.Logger) *Orchestrator {
	rateLimiter := ratelimit.New(ratelimit.Config{
		MinInterval: cfg.GetRespawnProtectionDuration(),
		ForceBackup: cfg.ForceBackup,
	})

	return &Orchestrator{
		config:      cfg,
		api:         api,
		probe:       probe,
		downloader:  artifact.NewDownloader(probe, logger),
		storage:     store,
		rateLimiter: rateLimiter,
		sleeper:     ClockSleeper{Clock: clock.WallClock},
		logger:      logger,
		phase:       PhaseIdle,
		phaseSince:  time.Now(),
	}
}

// Phase returns the current phase of the run.
func (o *Orchestrator) Phase() Phase {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase == p {
		return
	}
	o.logger.Debug("Phase changed", "from", o.phase, "to", p)
	o.phase = p
	o.phaseSince = time.Now()
}

// fail moves the run to PhaseFailed unless a more specific failure phase is
// already set.
func (o *Orchestrator) fail() {
	if !o.Phase().Failed() {
		o.setPhase(PhaseFailed)
	}
}

// HealthCheck reports the run as unhealthy once it ended in a failure phase.
func (o *Orchestrator) HealthCheck(ctx context.Context) health.Check {
	o.mu.RLock()
	phase, since := o.phase, o.phaseSince
	o.mu.RUnlock()

	status := health.StatusHealthy
	if phase.Failed() {
		status = health.StatusUnhealthy
	}
	return health.Check{
		Status:    status,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"phase":    string(phase),
			"finished": phase.Terminal(),
			"since":    since,
			"service":  o.config.ServiceName,
			"database": o.config.DatabaseName,
		},
	}
}

// TriggerBackup asks OVH for a new dump, waits until it shows up in the dump
// listing and checks that its artifact can be fetched. It returns the URL of
// the artifact. On error the phase ends in a failure phase.
func (o *Orchestrator) TriggerBackup(ctx context.Context) (string, error) {
	dump, err := o.triggerBackup(ctx)
	if err != nil {
		o.fail()
		return "", err
	}
	return dump.URL, nil
}

func (o *Orchestrator) triggerBackup(ctx context.Context) (*privatedb.Dump, error) {
	o.setPhase(PhaseIdle)
	triggerStart := time.Now()

	ids, err := o.api.ListDumps(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing dumps: %w", err)
	}
	baseline, ok := privatedb.Newest(ids)
	if !ok {
		o.logger.Error("No existing dump found",
			"service", o.config.ServiceName,
			"database", o.config.DatabaseName,
		)
		return nil, fmt.Errorf("%w: database %s on %s", ErrEmptyBackupSet, o.config.DatabaseName, o.config.ServiceName)
	}
	o.logger.Debug("Retrieved existing dumps", "count", len(ids), "latest", baseline)

	if o.rateLimiter.Enabled() {
		recent, err := o.recentDump(ctx, baseline)
		if err != nil {
			return nil, err
		}
		if recent != nil {
			o.setPhase(PhaseReused)
			metrics.RespawnBlocked.Inc()
			return o.confirmArtifact(ctx, recent)
		}
	}

	o.logger.Info("Creating a new dump",
		"service", o.config.ServiceName,
		"database", o.config.DatabaseName,
	)
	task, err := o.api.CreateDump(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create dump: %w", err)
	}
	o.setPhase(PhaseTriggered)
	metrics.PhaseDuration.WithLabelValues("trigger").Observe(time.Since(triggerStart).Seconds())
	o.logger.Debug("Dump task created", "task_id", task.ID, "function", task.Function, "status", task.Status)

	o.logger.Info("Waiting until dump is finished")
	pollStart := time.Now()
	newID, err := o.waitForNewDump(ctx, baseline)
	if err != nil {
		return nil, err
	}
	metrics.PhaseDuration.WithLabelValues("poll").Observe(time.Since(pollStart).Seconds())

	dump, err := o.api.GetDump(ctx, newID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dump %d: %w", newID, err)
	}
	o.logger.Debug("Dump details",
		"dump_id", dump.ID,
		"created", dump.CreationDate,
		"url", dump.URL,
	)

	return o.confirmArtifact(ctx, dump)
}

// recentDump returns the baseline dump when respawn protection forbids a new
// one, nil otherwise.
func (o *Orchestrator) recentDump(ctx context.Context, baseline int64) (*privatedb.Dump, error) {
	dump, err := o.api.GetDump(ctx, baseline)
	if err != nil {
		return nil, fmt.Errorf("failed to get dump %d: %w", baseline, err)
	}

	decision := o.rateLimiter.Decide(dump.CreationDate)
	o.logger.Info("Respawn protection decision", "allow", decision.Allow, "reason", decision.Reason)
	if decision.Allow {
		return nil, nil
	}

	o.logger.Info("Reusing recent dump instead of creating a new one", "dump_id", dump.ID)
	return dump, nil
}

// waitForNewDump lists dumps until the newest id differs from baseline. It
// lists at most MaxRetries+1 times and sleeps between listings only.
func (o *Orchestrator) waitForNewDump(ctx context.Context, baseline int64) (int64, error) {
	o.setPhase(PhasePolling)
	interval := o.config.PollInterval()

	for attempt := 0; ; attempt++ {
		ids, err := o.api.ListDumps(ctx)
		metrics.PollAttempts.Inc()
		if err != nil {
			return 0, fmt.Errorf("failed to poll dumps: %w", err)
		}

		// An empty listing counts as no change.
		if latest, ok := privatedb.Newest(ids); ok && latest != baseline {
			o.logger.Debug("New dump found", "dump_id", latest, "attempts", attempt+1)
			return latest, nil
		}

		if attempt >= o.config.MaxRetries {
			o.setPhase(PhaseTimedOut)
			o.logger.Error("Dump was not completed in time",
				"latest", baseline,
				"attempts", attempt+1,
			)
			return 0, fmt.Errorf("%w: newest dump is still %d after %d listings", ErrBackupTimeout, baseline, attempt+1)
		}

		o.logger.Debug("Latest dump has not changed, waiting",
			"latest", baseline,
			"retry", attempt+1,
			"wait", interval,
		)
		if err := o.sleeper.Sleep(ctx, interval); err != nil {
			return 0, fmt.Errorf("interrupted while waiting for dump: %w", err)
		}
	}
}

// confirmArtifact probes the dump URL. Only a 200 answer counts as available.
func (o *Orchestrator) confirmArtifact(ctx context.Context, dump *privatedb.Dump) (*privatedb.Dump, error) {
	o.setPhase(PhaseCompleted)

	ok, err := o.probe.Exists(ctx, dump.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to probe dump %d: %w", dump.ID, err)
	}
	if !ok {
		o.setPhase(PhaseArtifactUnavailable)
		o.logger.Error("Dump not available at url", "dump_id", dump.ID, "url", dump.URL)
		return nil, fmt.Errorf("%w: dump %d at %s", ErrArtifactUnavailable, dump.ID, dump.URL)
	}

	o.logger.Info("Dump is finished", "dump_id", dump.ID, "url", dump.URL)
	return dump, nil
}

// Run executes a full job: trigger a dump, download it into BackupPath and
// mirror it when storage is configured.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	startTime := time.Now()
	o.logger.Info("Starting dump orchestration",
		"service", o.config.ServiceName,
		"database", o.config.DatabaseName,
	)

	metrics.Info.WithLabelValues(version, o.config.ServiceName, o.config.DatabaseName, o.config.StorageProvider).Set(1)

	defer func() {
		metrics.RecordDumpAttempt(outcome(err))
		if err != nil {
			o.fail()
		}
	}()

	dump, err := o.triggerBackup(ctx)
	if err != nil {
		return err
	}

	o.setPhase(PhaseDownloading)
	downloadStart := time.Now()
	result, err := o.downloader.Download(ctx, dump.URL, o.config.BackupPath)
	if err != nil {
		return fmt.Errorf("failed to download dump %d: %w", dump.ID, err)
	}
	metrics.PhaseDuration.WithLabelValues("download").Observe(time.Since(downloadStart).Seconds())
	metrics.ArtifactSize.Set(float64(result.Bytes))
	metrics.LastDumpID.Set(float64(dump.ID))

	if o.storage != nil {
		o.setPhase(PhaseMirroring)
		if err := o.mirror(ctx, dump, result); err != nil {
			return err
		}

		if o.config.RetentionDays > 0 {
			if err := o.cleanupOldBackups(ctx); err != nil {
				o.logger.Warn("Failed to cleanup old mirrored dumps", "error", err)
			}
		}
	}

	o.setPhase(PhaseDone)
	metrics.LastSuccessTimestamp.Set(float64(time.Now().Unix()))
	metrics.PhaseDuration.WithLabelValues("total").Observe(time.Since(startTime).Seconds())

	o.logger.Info("Dump run completed successfully",
		"dump_id", dump.ID,
		"path", result.Path,
		"duration", time.Since(startTime),
	)
	return nil
}
