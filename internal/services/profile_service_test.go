package services

import (
	"strings"
	"testing"

	"github.com/Authority98/feedo-sub000/internal/models"
)

type stubProfileStore struct {
	profiles map[string]*models.ProfileType
	answers  map[string]map[string]*models.SectionAnswerDocument // userID -> sectionID -> doc
	audits   []AuditEntry
	renames  []map[string]string
}

func newStubProfileStore() *stubProfileStore {
	return &stubProfileStore{
		profiles: map[string]*models.ProfileType{},
		answers:  map[string]map[string]*models.SectionAnswerDocument{},
	}
}

func (s *stubProfileStore) InsertProfileType(pt *models.ProfileType) error {
	s.profiles[pt.ID] = pt
	return nil
}

func (s *stubProfileStore) GetProfileType(id string) (*models.ProfileType, error) {
	return s.profiles[id], nil
}

func (s *stubProfileStore) ListProfileTypes() ([]*models.ProfileType, error) {
	out := make([]*models.ProfileType, 0, len(s.profiles))
	for _, pt := range s.profiles {
		out = append(out, pt)
	}
	return out, nil
}

func (s *stubProfileStore) UpdateProfileType(pt *models.ProfileType) error {
	if _, ok := s.profiles[pt.ID]; !ok {
		return NewNotFoundError("profile type not found")
	}
	s.profiles[pt.ID] = pt
	return nil
}

func (s *stubProfileStore) DeleteProfileType(id string) error {
	delete(s.profiles, id)
	return nil
}

func (s *stubProfileStore) ApplySectionRenames(profileTypeID string, mappings map[string]string) error {
	s.renames = append(s.renames, mappings)
	for _, docs := range s.answers {
		for old, updated := range mappings {
			if doc, ok := docs[old]; ok {
				delete(docs, old)
				doc.ID = updated
				docs[updated] = doc
			}
		}
	}
	return nil
}

func (s *stubProfileStore) PurgeAnswersForSections(profileTypeID string, keep map[string]bool) (int, error) {
	removed := 0
	for _, docs := range s.answers {
		for sectionID, doc := range docs {
			if doc.ProfileType == profileTypeID && !keep[sectionID] {
				delete(docs, sectionID)
				removed++
			}
		}
	}
	return removed, nil
}

func (s *stubProfileStore) AddAudit(entry AuditEntry) { s.audits = append(s.audits, entry) }

func sampleSections() []SectionEdit {
	return []SectionEdit{
		{Label: "Personal Info", Questions: []*models.Question{
			{ID: "name", Type: models.QuestionText, Question: "Full name", Required: true},
			{ID: "interests", Type: models.QuestionMultipleChoice, Question: "Interests", Options: []string{"A", "B"}},
		}},
		{Label: "Work History", Questions: []*models.Question{
			{ID: "jobs", Type: models.QuestionRepeater, Question: "Jobs", Required: true, RepeaterFields: []*models.RepeaterField{
				{ID: "title", Type: models.QuestionText, Question: "Title", Required: true},
			}},
		}},
	}
}

func TestCreateProfileType(t *testing.T) {
	store := newStubProfileStore()
	svc := NewProfileTypeService(store)

	pt, err := svc.CreateProfileType(ProfileTypeInput{Label: "Job Seeker", Sections: sampleSections()}, "admin")
	if err != nil {
		t.Fatalf("CreateProfileType: %v", err)
	}
	if pt.ID != "job-seeker" {
		t.Fatalf("id = %q, want job-seeker", pt.ID)
	}
	if len(pt.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(pt.Sections))
	}
	if pt.Metadata.Version != 1 {
		t.Fatalf("version = %d, want 1", pt.Metadata.Version)
	}
	if _, err := svc.CreateProfileType(ProfileTypeInput{Label: "Job Seeker"}, "admin"); err == nil {
		t.Fatal("duplicate label should conflict")
	} else if se, ok := AsServiceError(err); !ok || se.Code != ErrorConflict {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestCreateProfileTypeValidation(t *testing.T) {
	store := newStubProfileStore()
	svc := NewProfileTypeService(store)

	cases := []struct {
		name string
		in   ProfileTypeInput
		frag string
	}{
		{"empty label", ProfileTypeInput{Label: "***"}, "label required"},
		{"choice without options", ProfileTypeInput{Label: "X", Sections: []SectionEdit{{Label: "S", Questions: []*models.Question{
			{Type: models.QuestionDropdown, Question: "Pick"},
		}}}}, "options"},
		{"repeater without fields", ProfileTypeInput{Label: "X", Sections: []SectionEdit{{Label: "S", Questions: []*models.Question{
			{Type: models.QuestionRepeater, Question: "Rep"},
		}}}}, "repeater"},
		{"nested repeater", ProfileTypeInput{Label: "X", Sections: []SectionEdit{{Label: "S", Questions: []*models.Question{
			{Type: models.QuestionRepeater, Question: "Rep", RepeaterFields: []*models.RepeaterField{
				{Type: models.QuestionRepeater, Question: "Nested"},
			}},
		}}}}, "nest"},
		{"bad pattern", ProfileTypeInput{Label: "X", Sections: []SectionEdit{{Label: "S", Questions: []*models.Question{
			{Type: models.QuestionText, Question: "T", Validation: &models.Validation{Pattern: "("}},
		}}}}, "pattern"},
		{"min over max", ProfileTypeInput{Label: "X", Sections: []SectionEdit{{Label: "S", Questions: []*models.Question{
			{Type: models.QuestionText, Question: "T", Validation: &models.Validation{MinLength: 10, MaxLength: 2}},
		}}}}, "maxLength"},
		{"duplicate section slug", ProfileTypeInput{Label: "X", Sections: []SectionEdit{
			{Label: "My Section"}, {Label: "my   section"},
		}}, "duplicate"},
	}
	for _, c := range cases {
		_, err := svc.CreateProfileType(c.in, "admin")
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		if !strings.Contains(err.Error(), c.frag) {
			t.Errorf("%s: error %q does not mention %q", c.name, err, c.frag)
		}
	}
}

func TestUpdateSectionsRenameMigratesAnswers(t *testing.T) {
	store := newStubProfileStore()
	svc := NewProfileTypeService(store)
	if _, err := svc.CreateProfileType(ProfileTypeInput{Label: "Job Seeker", Sections: sampleSections()}, "admin"); err != nil {
		t.Fatalf("create: %v", err)
	}
	store.answers["user1"] = map[string]*models.SectionAnswerDocument{
		"personal-info": {ID: "personal-info", ProfileType: "job-seeker"},
	}

	edits := []SectionEdit{
		{OriginalID: "personal-info", Label: "Personal Details", Questions: sampleSections()[0].Questions},
		{OriginalID: "work-history", Label: "Work History", Questions: sampleSections()[1].Questions},
	}
	pt, mappings, err := svc.UpdateSections("job-seeker", edits, "admin")
	if err != nil {
		t.Fatalf("UpdateSections: %v", err)
	}
	if mappings["personal-info"] != "personal-details" {
		t.Fatalf("mappings = %v", mappings)
	}
	if _, ok := pt.Sections["personal-details"]; !ok {
		t.Fatalf("schema missing renamed section: %v", pt.Sections)
	}
	if pt.Metadata.Version != 2 {
		t.Fatalf("version = %d, want 2", pt.Metadata.Version)
	}
	if doc := store.answers["user1"]["personal-details"]; doc == nil {
		t.Fatal("stored answers did not follow the rename")
	}
	if _, ok := store.answers["user1"]["personal-info"]; ok {
		t.Fatal("old answer key still present after rename")
	}
}

func TestLoadSections(t *testing.T) {
	store := newStubProfileStore()
	svc := NewProfileTypeService(store)

	if _, err := svc.LoadSections("missing"); err == nil {
		t.Fatal("missing profile type should be NotFound")
	} else if se, ok := AsServiceError(err); !ok || se.Code != ErrorNotFound {
		t.Fatalf("want not_found, got %v", err)
	}

	// empty section map is a valid terminal state, not an error
	store.profiles["empty"] = &models.ProfileType{ID: "empty", Sections: map[string]*models.Section{}}
	sections, err := svc.LoadSections("empty")
	if err != nil {
		t.Fatalf("LoadSections(empty): %v", err)
	}
	if len(sections) != 0 {
		t.Fatalf("sections = %v, want empty", sections)
	}

	if _, err := svc.CreateProfileType(ProfileTypeInput{Label: "Job Seeker", Sections: sampleSections()}, "admin"); err != nil {
		t.Fatalf("create: %v", err)
	}
	sections, err = svc.LoadSections("job-seeker")
	if err != nil {
		t.Fatalf("LoadSections: %v", err)
	}
	if len(sections) != 2 || sections[0].ID != "personal-info" || sections[1].ID != "work-history" {
		t.Fatalf("unexpected order: %v", sections)
	}
}

func TestPurgeOrphanAnswers(t *testing.T) {
	store := newStubProfileStore()
	svc := NewProfileTypeService(store)
	if _, err := svc.CreateProfileType(ProfileTypeInput{Label: "Job Seeker", Sections: sampleSections()}, "admin"); err != nil {
		t.Fatalf("create: %v", err)
	}
	store.answers["user1"] = map[string]*models.SectionAnswerDocument{
		"personal-info": {ID: "personal-info", ProfileType: "job-seeker"},
		"ghost-section": {ID: "ghost-section", ProfileType: "job-seeker"},
	}
	removed, err := svc.PurgeOrphanAnswers("job-seeker", "admin")
	if err != nil {
		t.Fatalf("PurgeOrphanAnswers: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := store.answers["user1"]["personal-info"]; !ok {
		t.Fatal("live answers must survive a purge")
	}
}
