package catalog

// Tx is a catalog mutation scope bound to a coordinator-issued
// transaction id (spec.md §4.2: "each executed within a transaction
// handle bound to an active coordinator-issued id").
//
// Begin acquires the catalog's single write lock for the lifetime of
// the transaction; Commit or Rollback must always be called exactly
// once to release it.
type Tx struct {
	h        *Handle
	xid      string
	undo     []func()
	finished bool
}

// Begin starts a write transaction against h under xid. It blocks
// until any other in-flight write transaction finishes.
func (h *Handle) Begin(xid string) *Tx {
	h.writeMu.Lock()
	return &Tx{h: h, xid: xid}
}

// XID reports the transaction id this Tx is bound to.
func (tx *Tx) XID() string { return tx.xid }

// record appends an undo action executed in reverse order on Rollback.
func (tx *Tx) record(undo func()) {
	tx.undo = append(tx.undo, undo)
}

// Commit finalizes all mutations made under tx. The catalog's share of
// atomic 2PC commit (spec.md §4.6) is simply: nothing more needs to
// happen, because every mutation already applied directly to the live
// Handle — Commit only releases the write lock and marks tx spent.
func (tx *Tx) Commit() error {
	if tx.finished {
		return nil
	}
	tx.finished = true
	tx.undo = nil
	tx.h.writeMu.Unlock()
	return nil
}

// Rollback undoes every mutation recorded by tx, in reverse order, and
// releases the write lock.
func (tx *Tx) Rollback() error {
	if tx.finished {
		return nil
	}
	tx.finished = true
	tx.h.mu.Lock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.h.mu.Unlock()
	tx.h.writeMu.Unlock()
	return nil
}

// Prepare is the catalog's half of two-phase commit: since mutations
// are already applied in-place (no separate staging area), prepare is
// always durable once reached; it exists so internal/txncoord can
// treat the catalog uniformly with adapter participants.
func (tx *Tx) Prepare() (bool, error) {
	return true, nil
}
