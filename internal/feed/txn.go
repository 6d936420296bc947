package feed

// ReadMark is an optimistic read-flag mutation captured as an explicit
// transaction: the pre-mutation value is recorded at begin time so that
// every failure branch has a provable undo. A ReadMark ends in exactly
// one of Commit or Rollback; later calls are no-ops.
type ReadMark struct {
	store *Store
	id    string
	prior bool
	done  bool
}

// BeginReadMark applies the optimistic flip and returns the transaction
// handle. Returns ErrNotInFeed when the id is not currently loaded.
func (s *Store) BeginReadMark(id string, read bool) (*ReadMark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok := s.setReadLocked(id, read)
	if !ok {
		return nil, ErrNotInFeed
	}
	s.unreadCount = s.countUnreadLocked()

	return &ReadMark{store: s, id: id, prior: prior}, nil
}

// Commit finalizes the optimistic flip.
func (t *ReadMark) Commit() {
	if t.done {
		return
	}
	t.done = true
}

// Rollback restores the pre-mutation read flag and re-derives the
// unread counter.
func (t *ReadMark) Rollback() {
	if t.done {
		return
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.setReadLocked(t.id, t.prior); ok {
		s.unreadCount = s.countUnreadLocked()
	}
}

// Prior returns the read flag value captured when the transaction began.
func (t *ReadMark) Prior() bool {
	return t.prior
}
