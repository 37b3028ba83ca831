// Package schedule implements the cron-submission interface spec.md
// keeps in scope even while excluding the scheduler's own trigger UI:
// a Runner loads ScanSchedule rows from the Catalog Store and, on each
// trigger, calls the Operation Engine's Submit entry point — the same
// one the HTTP surface uses, so a schedule can never back-door mutate
// operation state (spec.md §9).
package schedule

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"mediaguard/internal/catalog"
	"mediaguard/internal/engine"
	"mediaguard/internal/logger"
)

// Submitter is the subset of *engine.Engine a schedule entry calls.
type Submitter interface {
	Submit(variant catalog.OperationVariant, params engine.Params) (string, error)
}

// Runner wraps a robfig/cron.Cron instance, keeping it in sync with the
// scan_schedules table.
type Runner struct {
	store     *catalog.Store
	submitter Submitter
	cron      *cron.Cron

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

// New constructs a Runner. Call Reload once before Start to register the
// schedules that already exist, then call Reload again after every
// admin mutation to the scan_schedules table.
func New(store *catalog.Store, submitter Submitter) *Runner {
	return &Runner{
		store:     store,
		submitter: submitter,
		cron:      cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
		entries:   make(map[int64]cron.EntryID),
	}
}

// Start begins the cron dispatch loop in its own goroutine.
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts the dispatch loop, waiting for any in-flight job function
// to return (job functions only call Submit, which itself returns
// immediately once an operation goroutine is launched).
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// Reload reads every ScanSchedule row and replaces the Runner's cron
// entries with ones matching the current table: removed schedules are
// unregistered, inactive schedules are skipped, and active ones are
// (re)registered with their current time_expression.
func (r *Runner) Reload() error {
	rows, err := r.store.ListSchedules()
	if err != nil {
		return fmt.Errorf("schedule: load schedules: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]bool, len(rows))
	for _, sc := range rows {
		seen[sc.ID] = true
		if id, ok := r.entries[sc.ID]; ok {
			r.cron.Remove(id)
			delete(r.entries, sc.ID)
		}
		if !sc.Active {
			continue
		}
		spec, err := cronSpec(sc.TimeExpression)
		if err != nil {
			logger.Error("schedule: skipping %q (id=%d): %v", sc.Name, sc.ID, err)
			continue
		}
		variant := sc.Variant
		name := sc.Name
		id, err := r.cron.AddFunc(spec, func() {
			r.fire(variant, name)
		})
		if err != nil {
			logger.Error("schedule: failed to register %q (id=%d): %v", sc.Name, sc.ID, err)
			continue
		}
		r.entries[sc.ID] = id
	}

	for id, entryID := range r.entries {
		if !seen[id] {
			r.cron.Remove(entryID)
			delete(r.entries, id)
		}
	}

	return nil
}

func (r *Runner) fire(variant catalog.OperationVariant, name string) {
	operationID, err := r.submitter.Submit(variant, engine.Params{})
	if err != nil {
		logger.Warn("schedule: %s (%s) skipped: %v", name, variant, err)
		return
	}
	logger.Info("schedule: %s triggered %s operation %s", name, variant, operationID)
}

// cronSpec translates a ScanSchedule.TimeExpression into the spec
// robfig/cron's parser accepts. "@every <duration>" and any other
// "@"-prefixed descriptor pass through unchanged for the parser to
// validate at registration; a bare 5-field cron expression passes
// through unchanged; anything else is rejected here, and Reload logs
// and skips the schedule.
func cronSpec(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("empty time expression")
	}
	if strings.HasPrefix(expr, "@every ") || strings.HasPrefix(expr, "@") {
		return expr, nil
	}
	if len(strings.Fields(expr)) != 5 {
		return "", fmt.Errorf("expected a 5-field cron expression or @every duration, got %q", expr)
	}
	return expr, nil
}
