package api

import (
	"testing"

	"github.com/Authority98/feedo-sub000/internal/models"
)

func sectionDoc(id, profileType, answer string) *models.SectionAnswerDocument {
	return &models.SectionAnswerDocument{
		ID:          id,
		ProfileType: profileType,
		Questions: []*models.AnswerEntry{
			{ID: "q1", Type: models.QuestionText, Question: "?", Answer: answer},
		},
	}
}

func TestMemoryStoreVersionedWrites(t *testing.T) {
	s := newMemoryStore()

	saved, ok := s.PutSectionAnswers("u1", sectionDoc("about-you", "startup", "a"), 0)
	if !ok || saved.Version != 1 {
		t.Fatalf("first write: ok=%v version=%d", ok, saved.Version)
	}
	if _, ok := s.PutSectionAnswers("u1", sectionDoc("about-you", "startup", "b"), 0); ok {
		t.Fatal("stale write must be rejected")
	}
	saved, ok = s.PutSectionAnswers("u1", sectionDoc("about-you", "startup", "b"), 1)
	if !ok || saved.Version != 2 {
		t.Fatalf("second write: ok=%v version=%d", ok, saved.Version)
	}
	if got := s.GetSectionAnswers("u1", "about-you").Questions[0].Answer; got != "b" {
		t.Fatalf("expected latest answer, got %v", got)
	}
}

func TestMemoryStoreRenameHandlesSwappedIDs(t *testing.T) {
	s := newMemoryStore()
	s.PutSectionAnswers("u1", sectionDoc("alpha", "startup", "first"), 0)
	s.PutSectionAnswers("u1", sectionDoc("beta", "startup", "second"), 0)

	moved := s.RenameAnswerSections("startup", map[string]string{"alpha": "beta", "beta": "alpha"})
	if moved != 2 {
		t.Fatalf("expected 2 moves, got %d", moved)
	}
	if got := s.GetSectionAnswers("u1", "alpha").Questions[0].Answer; got != "second" {
		t.Fatalf("swap lost data: alpha=%v", got)
	}
	if got := s.GetSectionAnswers("u1", "beta").Questions[0].Answer; got != "first" {
		t.Fatalf("swap lost data: beta=%v", got)
	}
	if doc := s.GetSectionAnswers("u1", "alpha"); doc.ID != "alpha" {
		t.Fatalf("doc id not rewritten: %s", doc.ID)
	}
}

func TestMemoryStoreRenameSkipsOtherProfileTypes(t *testing.T) {
	s := newMemoryStore()
	s.PutSectionAnswers("u1", sectionDoc("details", "startup", "keep"), 0)
	s.PutSectionAnswers("u1", sectionDoc("about", "charity", "other"), 0)

	if moved := s.RenameAnswerSections("startup", map[string]string{"about": "profile"}); moved != 0 {
		t.Fatalf("expected 0 moves, got %d", moved)
	}
	if s.GetSectionAnswers("u1", "about") == nil {
		t.Fatal("document from another profile type must not move")
	}
}

func TestMemoryStoreSnapshotPersistence(t *testing.T) {
	path := t.TempDir() + "/store.json"
	st, err := NewMemoryStoreFromPath(path)
	if err != nil {
		t.Fatalf("fresh store: %v", err)
	}
	st.AddUser(&models.User{ID: "u1", Email: "ops@example.com", PassHash: []byte("h")})
	st.PutSectionAnswers("u1", sectionDoc("about-you", "startup", "hello"), 0)

	reloaded, err := NewMemoryStoreFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.FindUserByEmail("ops@example.com") == nil {
		t.Fatal("user lost across reload")
	}
	doc := reloaded.GetSectionAnswers("u1", "about-you")
	if doc == nil || doc.Version != 1 || doc.Questions[0].Answer != "hello" {
		t.Fatalf("answers lost across reload: %+v", doc)
	}

	snap := StoreSnapshot(reloaded)
	if snap == nil || len(snap.Users) != 1 || len(snap.Answers["u1"]) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestMemoryStorePurgeAnswerSections(t *testing.T) {
	s := newMemoryStore()
	s.PutSectionAnswers("u1", sectionDoc("kept", "startup", "a"), 0)
	s.PutSectionAnswers("u1", sectionDoc("orphan", "startup", "b"), 0)
	s.PutSectionAnswers("u2", sectionDoc("orphan", "startup", "c"), 0)

	removed := s.PurgeAnswerSections("startup", map[string]bool{"kept": true})
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if s.GetSectionAnswers("u1", "kept") == nil {
		t.Fatal("kept section must survive")
	}
	if s.GetSectionAnswers("u1", "orphan") != nil || s.GetSectionAnswers("u2", "orphan") != nil {
		t.Fatal("orphan sections must be removed for all users")
	}
}
