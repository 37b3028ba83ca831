// Package writer implements the Write Serializer (spec.md §4.5): the
// single consumer of a write-request queue that applies every catalog
// mutation under one writer connection, so the embedded SQLite database
// never sees concurrent writes from multiple scan workers.
//
// Design follows spec.md §9's "write queue" re-architecture note: write
// requests are a tagged-variant interface (message), not a dynamically
// typed dictionary, and ordering is FIFO with respect to submission —
// the consumer drains one message at a time from a single channel.
package writer

import (
	"database/sql"

	"mediaguard/internal/catalog"
	"mediaguard/internal/logger"
)

// message is the tagged-variant write request. Each concrete type
// implements apply, which runs inside one transaction against the
// writer connection.
type message interface {
	apply(tx *sql.Tx) error
}

// notifier is implemented by messages that need to report completion
// back to the submitter without breaking FIFO ordering (used for the
// handful of operation-engine writes that must be durably committed
// before the caller proceeds: creating an operation-state row, and its
// terminal update/report).
type notifier interface {
	notify(err error)
}

// Serializer owns the single writer goroutine and its request queue.
type Serializer struct {
	store   *catalog.Store
	queue   chan message
	done    chan struct{}
	stopped chan struct{}
}

// New creates a Serializer bound to store. Call Start to begin draining
// the queue and Stop for graceful teardown.
func New(store *catalog.Store) *Serializer {
	return &Serializer{
		store:   store,
		queue:   make(chan message, 4096),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the consumer goroutine. Must be called exactly once.
func (s *Serializer) Start() {
	go s.run()
}

// Stop signals shutdown and blocks until the consumer drains whatever
// is queued and exits.
func (s *Serializer) Stop() {
	close(s.done)
	<-s.stopped
}

func (s *Serializer) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			s.drainRemaining()
			return
		case msg := <-s.queue:
			s.apply(msg)
		}
	}
}

// drainRemaining applies whatever is left in the queue once shutdown
// has been requested, so a cancel or completion message enqueued just
// before Stop is not silently lost.
func (s *Serializer) drainRemaining() {
	for {
		select {
		case msg := <-s.queue:
			s.apply(msg)
		default:
			return
		}
	}
}

// apply opens one transaction, applies the message, and commits. On any
// error the transaction is rolled back, the error logged, and the
// consumer continues with the next message (spec.md §4.5: "the message
// is dropped... the consumer continues").
func (s *Serializer) apply(msg message) {
	tx, err := s.store.BeginWrite()
	if err != nil {
		logger.Error("writer: begin transaction failed: %v", err)
		s.notifyIfNeeded(msg, err)
		return
	}

	applyErr := msg.apply(tx)
	if applyErr != nil {
		logger.Error("writer: apply message failed, rolling back: %v", applyErr)
		tx.Rollback()
		s.notifyIfNeeded(msg, applyErr)
		return
	}

	commitErr := tx.Commit()
	if commitErr != nil {
		logger.Error("writer: commit failed: %v", commitErr)
	}
	s.notifyIfNeeded(msg, commitErr)
}

func (s *Serializer) notifyIfNeeded(msg message, err error) {
	if n, ok := msg.(notifier); ok {
		n.notify(err)
	}
}

func (s *Serializer) submit(msg message) {
	s.queue <- msg
}

// syncSubmit enqueues msg and blocks until it has been committed (or
// failed), without breaking FIFO ordering: it still travels through the
// same channel and run loop as every other write.
func (s *Serializer) syncSubmit(msg message) error {
	errCh := make(chan error, 1)
	s.submit(&waitable{message: msg, errCh: errCh})
	return <-errCh
}

// waitable wraps any message with a completion channel.
type waitable struct {
	message
	errCh chan error
}

func (w *waitable) notify(err error) { w.errCh <- err }

// --- Public API: one method per message type --------------------------

type insertNewFileMsg struct{ f catalog.NewFileInsert }

func (m insertNewFileMsg) apply(tx *sql.Tx) error { return catalog.InsertNewFile(tx, m.f) }

// InsertNewFile enqueues a new pending ScanResult row.
func (s *Serializer) InsertNewFile(f catalog.NewFileInsert) { s.submit(insertNewFileMsg{f}) }

type batchInsertNewFilesMsg struct{ files []catalog.NewFileInsert }

func (m batchInsertNewFilesMsg) apply(tx *sql.Tx) error {
	for _, f := range m.files {
		if err := catalog.InsertNewFile(tx, f); err != nil {
			return err
		}
	}
	return nil
}

// BatchInsertNewFiles enqueues a batch of new-file inserts as a single
// transaction (spec.md §4.4.1 phase 2: "Flush in batches of 100").
func (s *Serializer) BatchInsertNewFiles(files []catalog.NewFileInsert) {
	s.submit(batchInsertNewFilesMsg{files})
}

type markScanningMsg struct{ id int64 }

func (m markScanningMsg) apply(tx *sql.Tx) error { return catalog.MarkScanning(tx, m.id) }

// MarkScanning transitions a row to scan_status=scanning.
func (s *Serializer) MarkScanning(id int64) { s.submit(markScanningMsg{id}) }

type applyScanResultMsg struct{ u catalog.ScanResultUpdate }

func (m applyScanResultMsg) apply(tx *sql.Tx) error { return catalog.ApplyScanResult(tx, m.u) }

// UpdateScanResult enqueues one probe verdict.
func (s *Serializer) UpdateScanResult(u catalog.ScanResultUpdate) { s.submit(applyScanResultMsg{u}) }

type batchUpdateScanResultsMsg struct{ updates []catalog.ScanResultUpdate }

func (m batchUpdateScanResultsMsg) apply(tx *sql.Tx) error {
	for _, u := range m.updates {
		if err := catalog.ApplyScanResult(tx, u); err != nil {
			return err
		}
	}
	return nil
}

// BatchUpdateScanResults enqueues several probe verdicts as one
// transaction.
func (s *Serializer) BatchUpdateScanResults(updates []catalog.ScanResultUpdate) {
	s.submit(batchUpdateScanResultsMsg{updates})
}

type resetToPendingMsg struct{ id int64 }

func (m resetToPendingMsg) apply(tx *sql.Tx) error { return catalog.ResetToPending(tx, m.id) }

// ResetToPending resets one row for rescan.
func (s *Serializer) ResetToPending(id int64) { s.submit(resetToPendingMsg{id}) }

type resetToPendingByPathMsg struct{ path string }

func (m resetToPendingByPathMsg) apply(tx *sql.Tx) error {
	return catalog.ResetToPendingByPath(tx, m.path)
}

// ResetToPendingByPath resets a row identified by path for rescan.
func (s *Serializer) ResetToPendingByPath(path string) { s.submit(resetToPendingByPathMsg{path}) }

type setMarkedAsGoodMsg struct {
	id     int64
	marked bool
}

func (m setMarkedAsGoodMsg) apply(tx *sql.Tx) error {
	return catalog.SetMarkedAsGood(tx, m.id, m.marked)
}

// SetMarkedAsGood applies the marked-as-good override.
func (s *Serializer) SetMarkedAsGood(id int64, marked bool) {
	s.submit(setMarkedAsGoodMsg{id, marked})
}

type deleteScanResultsMsg struct{ ids []int64 }

func (m deleteScanResultsMsg) apply(tx *sql.Tx) error { return catalog.DeleteScanResults(tx, m.ids) }

// DeleteScanResults enqueues a batch delete (cleanup operation, 50 per
// commit per spec.md §4.4.2).
func (s *Serializer) DeleteScanResults(ids []int64) { s.submit(deleteScanResultsMsg{ids}) }

type createOperationStateMsg struct{ st *catalog.OperationState }

func (m createOperationStateMsg) apply(tx *sql.Tx) error {
	return catalog.CreateOperationState(tx, m.st)
}

// CreateOperationStateSync enqueues a new OperationState row and blocks
// until it is durably committed: the Operation Engine must know the row
// exists before returning an operation_id to the caller, and before any
// subsequent progress update could race ahead of the insert.
func (s *Serializer) CreateOperationStateSync(st *catalog.OperationState) error {
	return s.syncSubmit(createOperationStateMsg{st})
}

type updateOperationStateMsg struct{ st *catalog.OperationState }

func (m updateOperationStateMsg) apply(tx *sql.Tx) error {
	return catalog.UpdateOperationState(tx, m.st)
}

// UpdateOperationState enqueues a progress update (fire-and-forget; the
// HTTP status endpoint reads the row straight from the Catalog Store, so
// nothing downstream blocks on this commit).
func (s *Serializer) UpdateOperationState(st *catalog.OperationState) {
	s.submit(updateOperationStateMsg{st})
}

// UpdateOperationStateSync applies a progress update synchronously; used
// for the terminal transition (completed/cancelled/error) so a status
// poll immediately after a cancel/complete response observes the final
// row.
func (s *Serializer) UpdateOperationStateSync(st *catalog.OperationState) error {
	return s.syncSubmit(updateOperationStateMsg{st})
}

type insertReportMsg struct{ r *catalog.ScanReport }

func (m insertReportMsg) apply(tx *sql.Tx) error { return catalog.InsertReport(tx, m.r) }

// InsertReportSync writes the terminal ScanReport synchronously.
func (s *Serializer) InsertReportSync(r *catalog.ScanReport) error {
	return s.syncSubmit(insertReportMsg{r})
}

// requestCancelMsg carries an extra result (a bool, not just an error)
// back to its submitter. It implements notifier itself rather than
// going through waitable, since it needs to report more than a single
// error value.
type requestCancelMsg struct {
	variant  catalog.OperationVariant
	found    bool
	resultCh chan cancelResult
}

type cancelResult struct {
	found bool
	err   error
}

func (m *requestCancelMsg) apply(tx *sql.Tx) error {
	found, err := catalog.RequestCancel(tx, m.variant)
	m.found = found
	return err
}

func (m *requestCancelMsg) notify(err error) {
	m.resultCh <- cancelResult{found: m.found, err: err}
}

// RequestCancelSync sets cancel_requested=1 on the active row for
// variant and blocks until committed, reporting whether a row was
// active to cancel (spec.md §4.7: cancel returns 400 when nothing is
// active).
func (s *Serializer) RequestCancelSync(variant catalog.OperationVariant) (bool, error) {
	resultCh := make(chan cancelResult, 1)
	s.submit(&requestCancelMsg{variant: variant, resultCh: resultCh})
	res := <-resultCh
	return res.found, res.err
}

type countResult struct {
	n   int64
	err error
}

type markInterruptedMsg struct {
	n        int64
	resultCh chan countResult
}

func (m *markInterruptedMsg) apply(tx *sql.Tx) error {
	n, err := catalog.MarkInterrupted(tx)
	m.n = n
	return err
}

func (m *markInterruptedMsg) notify(err error) {
	m.resultCh <- countResult{n: m.n, err: err}
}

// MarkInterruptedSync marks every still-active OperationState row as
// interrupted; run once at process startup before recovering scanning
// rows (spec.md §4.4.5).
func (s *Serializer) MarkInterruptedSync() (int64, error) {
	resultCh := make(chan countResult, 1)
	s.submit(&markInterruptedMsg{resultCh: resultCh})
	res := <-resultCh
	return res.n, res.err
}

type resetStuckScanningMsg struct {
	n        int64
	resultCh chan countResult
}

func (m *resetStuckScanningMsg) apply(tx *sql.Tx) error {
	n, err := catalog.ResetStuckScanning(tx)
	m.n = n
	return err
}

func (m *resetStuckScanningMsg) notify(err error) {
	m.resultCh <- countResult{n: m.n, err: err}
}

// ResetStuckScanningSync resets every scan_status=scanning row to
// pending; used both at startup and by the on-demand
// recover-stuck-scan admin endpoint (spec.md §4.4.5).
func (s *Serializer) ResetStuckScanningSync() (int64, error) {
	resultCh := make(chan countResult, 1)
	s.submit(&resetStuckScanningMsg{resultCh: resultCh})
	res := <-resultCh
	return res.n, res.err
}
