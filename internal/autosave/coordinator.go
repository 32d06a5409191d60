// Package autosave coalesces rapid edits to a section into debounced,
// whole-document writes: optimistic local mutation now, at most one
// persistence write in flight per section, last write wins at document
// granularity.
package autosave

import (
	"sync"
	"time"

	"github.com/Authority98/feedo-sub000/internal/models"
)

// DefaultDebounce matches the edit-settle delay the UI was tuned for.
const DefaultDebounce = time.Second

// State is the per-session autosave lifecycle. Transitions:
// Clean/Error -> Dirty on edit, Dirty -> Saving on timer elapse,
// Saving -> Clean on success, Saving -> Error on failure.
type State int

const (
	StateClean State = iota
	StateDirty
	StateSaving
	StateError
)

// Saver persists one whole section snapshot and returns the stored document
// carrying the new version token.
type Saver func(userID string, doc *models.SectionAnswerDocument) (*models.SectionAnswerDocument, error)

type Options struct {
	// Debounce is how long edits must settle before a write is issued.
	Debounce time.Duration
	// OnSaved runs after each successful write (event publication).
	OnSaved func(userID string, doc *models.SectionAnswerDocument)
	// OnError surfaces a failed write as a non-fatal warning; the session
	// stays dirty and retries on the next edit or explicit flush.
	OnError func(userID, sectionID string, err error)
}

type sessionKey struct {
	userID    string
	sectionID string
}

type session struct {
	state   State
	doc     *models.SectionAnswerDocument
	version int64 // last persisted version token
	timer   *time.Timer
	redirty bool // edited while a write was in flight
	queued  bool // debounce elapsed while a write was in flight
	lastErr error
}

// Coordinator runs one autosave state machine per open (user, section)
// editing session.
type Coordinator struct {
	saver    Saver
	debounce time.Duration
	onSaved  func(string, *models.SectionAnswerDocument)
	onError  func(string, string, error)

	mu       sync.Mutex
	sessions map[sessionKey]*session
	closed   bool
}

func NewCoordinator(saver Saver, opts Options) *Coordinator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Coordinator{
		saver:    saver,
		debounce: debounce,
		onSaved:  opts.OnSaved,
		onError:  opts.OnError,
		sessions: map[sessionKey]*session{},
	}
}

// Update records an edited snapshot of the whole section. The in-memory copy
// changes immediately; persistence happens once the debounce timer elapses.
// Edits that land while a write is in flight do not cancel it, they only
// schedule the next one.
func (c *Coordinator) Update(userID string, doc *models.SectionAnswerDocument) {
	if doc == nil || doc.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	key := sessionKey{userID: userID, sectionID: doc.ID}
	s := c.sessions[key]
	if s == nil {
		s = &session{}
		c.sessions[key] = s
	}
	s.doc = doc
	if doc.Version > s.version {
		s.version = doc.Version
	}
	if s.state == StateSaving {
		s.redirty = true
	} else {
		s.state = StateDirty
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(c.debounce, func() { c.timerElapsed(key) })
}

func (c *Coordinator) timerElapsed(key sessionKey) {
	c.mu.Lock()
	s := c.sessions[key]
	if s == nil || c.closed {
		c.mu.Unlock()
		return
	}
	if s.state == StateSaving {
		// one write in flight at most; run again once it lands
		s.queued = true
		c.mu.Unlock()
		return
	}
	if s.state != StateDirty {
		c.mu.Unlock()
		return
	}
	snapshot := c.beginSaveLocked(s)
	c.mu.Unlock()
	go c.runSave(key, snapshot)
}

// beginSaveLocked flips the session into Saving and returns the snapshot to
// persist, stamped with the last version token this session saw.
func (c *Coordinator) beginSaveLocked(s *session) *models.SectionAnswerDocument {
	s.state = StateSaving
	s.redirty = false
	snapshot := *s.doc
	snapshot.Version = s.version
	return &snapshot
}

func (c *Coordinator) runSave(key sessionKey, snapshot *models.SectionAnswerDocument) error {
	saved, err := c.saver(key.userID, snapshot)

	c.mu.Lock()
	s := c.sessions[key]
	if s == nil {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		s.state = StateError
		s.lastErr = err
		s.queued = false
		onError := c.onError
		c.mu.Unlock()
		if onError != nil {
			onError(key.userID, key.sectionID, err)
		}
		return err
	}
	s.lastErr = nil
	if saved != nil {
		s.version = saved.Version
	}
	var followUp *models.SectionAnswerDocument
	if s.redirty {
		s.state = StateDirty
		if s.queued {
			s.queued = false
			followUp = c.beginSaveLocked(s)
		}
	} else {
		s.state = StateClean
		if saved != nil {
			s.doc = saved
		}
	}
	onSaved := c.onSaved
	c.mu.Unlock()

	if onSaved != nil && saved != nil {
		onSaved(key.userID, saved)
	}
	if followUp != nil {
		go c.runSave(key, followUp)
	}
	return nil
}

// Flush forces an immediate synchronous write of any pending state, used on
// explicit save and when an editing session ends. With a write already in
// flight the pending edits are queued behind it instead.
func (c *Coordinator) Flush(userID, sectionID string) error {
	c.mu.Lock()
	key := sessionKey{userID: userID, sectionID: sectionID}
	s := c.sessions[key]
	if s == nil || c.closed || s.state == StateClean {
		c.mu.Unlock()
		return nil
	}
	if s.state == StateSaving {
		s.queued = true
		c.mu.Unlock()
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	snapshot := c.beginSaveLocked(s)
	c.mu.Unlock()
	return c.runSave(key, snapshot)
}

// Snapshot returns the session's current optimistic document, which may be
// ahead of what is persisted.
func (c *Coordinator) Snapshot(userID, sectionID string) (*models.SectionAnswerDocument, State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessions[sessionKey{userID: userID, sectionID: sectionID}]
	if s == nil {
		return nil, StateClean, false
	}
	return s.doc, s.state, true
}

// DropSession forgets a session's local state, e.g. after its answers moved
// to a renamed section id.
func (c *Coordinator) DropSession(userID, sectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := sessionKey{userID: userID, sectionID: sectionID}
	if s := c.sessions[key]; s != nil && s.timer != nil {
		s.timer.Stop()
	}
	delete(c.sessions, key)
}

// Close stops every pending timer. In-flight writes finish; timers that have
// not fired are abandoned, mirroring the teardown contract for local session
// resources.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, s := range c.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
	}
}
