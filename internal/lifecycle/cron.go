package lifecycle

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/osaurus-ai/osaurus/internal/installer"
)

// ReconcileScheduler runs two recurring maintenance jobs on a cron
// schedule: a fallback plugin-directory reconciliation pass (the same
// PluginWatcher.Reconcile an fsnotify event would trigger) and a
// checksum verify pass over every installed plugin version. Grounded on
// the teacher's direct dependency on github.com/robfig/cron/v3
// (internal/cron/schedule.go's cron.Parser usage, internal/tasks/scheduler.go's
// recurring-job runner), redirected from the teacher's user-defined
// scheduled tasks (out of this core's scope, spec.md §1) to the one
// recurring job this gateway owns: keeping the plugin store's in-memory
// and on-disk state in sync even when fsnotify delivery is unreliable
// (e.g. on network filesystems, or a coalesced event the OS dropped).
type ReconcileScheduler struct {
	cron    *cron.Cron
	watcher *PluginWatcher
	ins     *installer.Installer
	logger  *slog.Logger
}

// NewReconcileScheduler builds a scheduler. watcher drives the fallback
// reconcile pass; ins (may be nil, e.g. in tests that don't exercise
// the installer) drives the periodic verify pass.
func NewReconcileScheduler(watcher *PluginWatcher, ins *installer.Installer, logger *slog.Logger) *ReconcileScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileScheduler{
		cron:    cron.New(),
		watcher: watcher,
		ins:     ins,
		logger:  logger.With("component", "lifecycle.cron"),
	}
}

// Start schedules both jobs on spec (a standard cron expression, or
// "@every <duration>") and begins running them in the background. An
// empty spec disables the schedule entirely — fsnotify-driven
// reconciliation still runs on its own.
func (s *ReconcileScheduler) Start(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.watcher.Reconcile); err != nil {
		return fmt.Errorf("schedule fallback reconcile %q: %w", spec, err)
	}
	if s.ins != nil {
		if _, err := s.cron.AddFunc(spec, s.runVerify); err != nil {
			return fmt.Errorf("schedule verify pass %q: %w", spec, err)
		}
	}
	s.cron.Start()
	return nil
}

// runVerify recomputes checksums for every installed plugin version and
// logs any that no longer match their receipt, surfacing silent disk
// corruption or tampering between installs (spec §4.E verify()).
func (s *ReconcileScheduler) runVerify() {
	for _, r := range s.ins.Verify() {
		if !r.OK {
			s.logger.Warn("scheduled plugin verify failed", "plugin_id", r.PluginID, "version", r.Version, "error", r.Error)
		}
	}
}

// Stop blocks until any in-flight job run completes.
func (s *ReconcileScheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
