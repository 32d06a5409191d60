package api

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Authority98/feedo-sub000/internal/models"
	"github.com/Authority98/feedo-sub000/internal/services"
)

type memoryStore struct {
	mu           sync.RWMutex
	profileTypes map[string]*models.ProfileType
	// answers[userID][sectionID]
	answers      map[string]map[string]*models.SectionAnswerDocument
	usersByEmail map[string]*models.User
	audit        []services.AuditEntry
	path         string // optional JSON snapshot file
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		profileTypes: map[string]*models.ProfileType{},
		answers:      map[string]map[string]*models.SectionAnswerDocument{},
		usersByEmail: map[string]*models.User{},
		audit:        []services.AuditEntry{},
	}
}

func NewMemoryStore() Store { return newMemoryStore() }

// Snapshot is the JSON shape of a persisted memory store, also used by the
// one-time sqlite import on first run.
type Snapshot struct {
	ProfileTypes []*models.ProfileType                              `json:"profileTypes"`
	Answers      map[string]map[string]*models.SectionAnswerDocument `json:"answers"`
	Users        []*models.User                                     `json:"users"`
	Audit        []services.AuditEntry                              `json:"audit"`
}

// LoadSnapshot reads a persisted store file. A missing file surfaces
// os.ErrNotExist so first run can be told apart from a corrupt snapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// NewMemoryStoreFromPath loads a JSON snapshot and keeps persisting every
// mutation back to the same file. A missing file starts an empty store that
// writes the snapshot on first mutation.
func NewMemoryStoreFromPath(path string) (Store, error) {
	s := newMemoryStore()
	s.path = path
	snap, err := LoadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	s.loadSnapshot(snap)
	return s, nil
}

func (s *memoryStore) loadSnapshot(snap *Snapshot) {
	for _, pt := range snap.ProfileTypes {
		if pt != nil {
			s.profileTypes[pt.ID] = pt
		}
	}
	for userID, docs := range snap.Answers {
		if len(docs) == 0 {
			continue
		}
		s.answers[userID] = map[string]*models.SectionAnswerDocument{}
		for sectionID, doc := range docs {
			if doc != nil {
				s.answers[userID][sectionID] = doc
			}
		}
	}
	for _, u := range snap.Users {
		if u != nil {
			s.usersByEmail[strings.ToLower(u.Email)] = u
		}
	}
	s.audit = append(s.audit, snap.Audit...)
}

// StoreSnapshot extracts the full content of a memory-backed store, or nil
// for other backends.
func StoreSnapshot(st Store) *Snapshot {
	s, ok := st.(*memoryStore)
	if !ok {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *memoryStore) snapshotLocked() *Snapshot {
	snap := &Snapshot{Answers: map[string]map[string]*models.SectionAnswerDocument{}}
	ids := make([]string, 0, len(s.profileTypes))
	for id := range s.profileTypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		snap.ProfileTypes = append(snap.ProfileTypes, s.profileTypes[id])
	}
	for userID, docs := range s.answers {
		cp := make(map[string]*models.SectionAnswerDocument, len(docs))
		for sectionID, doc := range docs {
			cp[sectionID] = doc
		}
		snap.Answers[userID] = cp
	}
	for _, u := range s.usersByEmail {
		snap.Users = append(snap.Users, u)
	}
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].Email < snap.Users[j].Email })
	snap.Audit = append([]services.AuditEntry(nil), s.audit...)
	return snap
}

// saveLocked writes the snapshot file best-effort; persistence failures are
// logged, not surfaced, so a read-only disk degrades to memory-only mode.
func (s *memoryStore) saveLocked() {
	if s.path == "" {
		return
	}
	b, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		log.Printf("memory store: marshal snapshot: %v", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		log.Printf("memory store: snapshot dir: %v", err)
		return
	}
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		log.Printf("memory store: write snapshot: %v", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		log.Printf("memory store: replace snapshot: %v", err)
	}
}

// --- Profile types ---

func (s *memoryStore) AddProfileType(pt *models.ProfileType) {
	if pt == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileTypes[pt.ID] = pt
	s.saveLocked()
}

func (s *memoryStore) GetProfileType(id string) *models.ProfileType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profileTypes[id]
}

func (s *memoryStore) ListProfileTypes() []*models.ProfileType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ProfileType, 0, len(s.profileTypes))
	for _, pt := range s.profileTypes {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) UpdateProfileType(pt *models.ProfileType) bool {
	if pt == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profileTypes[pt.ID] == nil {
		return false
	}
	s.profileTypes[pt.ID] = pt
	s.saveLocked()
	return true
}

func (s *memoryStore) DeleteProfileType(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profileTypes[id] == nil {
		return false
	}
	delete(s.profileTypes, id)
	s.saveLocked()
	return true
}

// --- Section answers ---

func (s *memoryStore) GetSectionAnswers(userID, sectionID string) *models.SectionAnswerDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answers[userID][sectionID]
}

func (s *memoryStore) PutSectionAnswers(userID string, doc *models.SectionAnswerDocument, expectedVersion int64) (*models.SectionAnswerDocument, bool) {
	if doc == nil || doc.ID == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var current int64
	if existing := s.answers[userID][doc.ID]; existing != nil {
		current = existing.Version
	}
	if expectedVersion != current {
		return nil, false
	}
	stored := *doc
	stored.Version = current + 1
	if s.answers[userID] == nil {
		s.answers[userID] = map[string]*models.SectionAnswerDocument{}
	}
	s.answers[userID][doc.ID] = &stored
	s.saveLocked()
	return &stored, true
}

func (s *memoryStore) ListSectionAnswers(userID string) map[string]*models.SectionAnswerDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.SectionAnswerDocument, len(s.answers[userID]))
	for sectionID, doc := range s.answers[userID] {
		out[sectionID] = doc
	}
	return out
}

func (s *memoryStore) RenameAnswerSections(profileTypeID string, mappings map[string]string) int {
	if len(mappings) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := 0
	for _, docs := range s.answers {
		// detach all sources first so swapped ids cannot clobber each other
		pending := map[string]*models.SectionAnswerDocument{}
		for oldID, newID := range mappings {
			doc := docs[oldID]
			if doc == nil || doc.ProfileType != profileTypeID {
				continue
			}
			pending[newID] = doc
			delete(docs, oldID)
		}
		for newID, doc := range pending {
			doc.ID = newID
			docs[newID] = doc
			moved++
		}
	}
	if moved > 0 {
		s.saveLocked()
	}
	return moved
}

func (s *memoryStore) PurgeAnswerSections(profileTypeID string, keep map[string]bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, docs := range s.answers {
		for sectionID, doc := range docs {
			if doc.ProfileType != profileTypeID || keep[sectionID] {
				continue
			}
			delete(docs, sectionID)
			removed++
		}
	}
	if removed > 0 {
		s.saveLocked()
	}
	return removed
}

// --- Users ---

func (s *memoryStore) AddUser(u *models.User) {
	if u == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usersByEmail[strings.ToLower(u.Email)] = u
	s.saveLocked()
}

func (s *memoryStore) FindUserByEmail(email string) *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usersByEmail[strings.ToLower(email)]
}

// --- Audit log ---

func (s *memoryStore) AddAudit(e services.AuditEntry) {
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.saveLocked()
	s.mu.Unlock()
}

func (s *memoryStore) ListAudit() []services.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]services.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}
