package lifecycle

import (
	"testing"

	"github.com/osaurus-ai/osaurus/internal/installer"
	"github.com/osaurus-ai/osaurus/internal/semver"
)

func TestReconcileSchedulerEmptySpecDisablesSchedule(t *testing.T) {
	store := installer.NewStore(t.TempDir(), nil)
	watcher := NewPluginWatcher(store, nil, nil)
	sched := NewReconcileScheduler(watcher, nil, nil)
	if err := sched.Start(""); err != nil {
		t.Fatalf("Start(\"\"): %v", err)
	}
	if got := len(sched.cron.Entries()); got != 0 {
		t.Fatalf("expected no scheduled entries for an empty spec, got %d", got)
	}
	sched.Stop()
}

func TestReconcileSchedulerSchedulesFallbackReconcileOnly(t *testing.T) {
	store := installer.NewStore(t.TempDir(), nil)
	watcher := NewPluginWatcher(store, nil, nil)
	sched := NewReconcileScheduler(watcher, nil, nil)
	if err := sched.Start("@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sched.Stop()
	if got := len(sched.cron.Entries()); got != 1 {
		t.Fatalf("expected 1 scheduled job with no installer wired, got %d", got)
	}
}

func TestReconcileSchedulerSchedulesVerifyWhenInstallerPresent(t *testing.T) {
	toolsRoot := t.TempDir()
	store := installer.NewStore(toolsRoot, nil)
	watcher := NewPluginWatcher(store, nil, nil)
	reg := installer.NewRegistryClient("http://example.invalid", t.TempDir(), nil)
	ins := installer.New(store, reg, installer.NewVerifier(), semver.MustParse("1.0.0"), nil)

	sched := NewReconcileScheduler(watcher, ins, nil)
	if err := sched.Start("@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sched.Stop()
	if got := len(sched.cron.Entries()); got != 2 {
		t.Fatalf("expected 2 scheduled jobs (reconcile + verify), got %d", got)
	}
}

func TestReconcileSchedulerRejectsInvalidSpec(t *testing.T) {
	store := installer.NewStore(t.TempDir(), nil)
	watcher := NewPluginWatcher(store, nil, nil)
	sched := NewReconcileScheduler(watcher, nil, nil)
	if err := sched.Start("not-a-cron-expression"); err == nil {
		t.Fatalf("expected an error for an invalid cron expression")
	}
}
