package services

import (
	"strings"

	"github.com/Authority98/feedo-sub000/internal/completion"
	"github.com/Authority98/feedo-sub000/internal/models"
)

// AnswerStore abstracts the per-user answer document collection.
type AnswerStore interface {
	GetSectionAnswers(userID, sectionID string) (*models.SectionAnswerDocument, error)
	// PutSectionAnswers replaces the whole document. expectedVersion is the
	// version the writer last saw (0 for a first write); a mismatch with the
	// stored version must fail with a conflict instead of silently
	// overwriting a concurrent session's data.
	PutSectionAnswers(userID string, doc *models.SectionAnswerDocument, expectedVersion int64) (*models.SectionAnswerDocument, error)
	ListSectionAnswers(userID string) (map[string]*models.SectionAnswerDocument, error)
}

// CompletionReport is derived on demand from schema plus answers and never
// persisted, so it cannot go stale: callers recompute after every write.
type CompletionReport struct {
	ProfileType string          `json:"profileType"`
	Sections    map[string]bool `json:"sections"`
	Progress    int             `json:"progress"`
}

// AnswerService reads and writes SectionAnswerDocuments and derives
// completion state from them.
type AnswerService struct {
	answers  AnswerStore
	profiles ProfileStore
}

func NewAnswerService(answers AnswerStore, profiles ProfileStore) *AnswerService {
	return &AnswerService{answers: answers, profiles: profiles}
}

// GetSection returns the stored document, or nil without error when the user
// has not answered the section yet.
func (s *AnswerService) GetSection(userID, sectionID string) (*models.SectionAnswerDocument, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sectionID) == "" {
		return nil, NewInvalidError("user id and section id required")
	}
	return s.answers.GetSectionAnswers(userID, sectionID)
}

// SaveSection persists one whole section snapshot. The document's Version
// field carries the write token; the updated document (with the new version)
// is returned on success.
func (s *AnswerService) SaveSection(userID string, doc *models.SectionAnswerDocument) (*models.SectionAnswerDocument, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, NewInvalidError("user id required")
	}
	if doc == nil || strings.TrimSpace(doc.ID) == "" {
		return nil, NewInvalidError("section id required")
	}
	for _, entry := range doc.Questions {
		if entry == nil || strings.TrimSpace(entry.ID) == "" {
			return nil, NewInvalidError("answer entries need question ids")
		}
	}
	return s.answers.PutSectionAnswers(userID, doc, doc.Version)
}

// Report evaluates per-section completion and the weighted global percentage
// for one user against one profile type. Absent schema or absent answers are
// not errors; they degrade to an all-false, zero-percent report.
func (s *AnswerService) Report(userID, profileTypeID string) (*CompletionReport, error) {
	report := &CompletionReport{ProfileType: profileTypeID, Sections: map[string]bool{}}
	pt, err := s.profiles.GetProfileType(profileTypeID)
	if err != nil {
		return nil, err
	}
	if pt == nil || len(pt.Sections) == 0 {
		return report, nil
	}
	docs, err := s.answers.ListSectionAnswers(userID)
	if err != nil {
		return nil, err
	}
	sections := SortSections(pt.Sections)
	for _, section := range sections {
		report.Sections[section.ID] = completion.IsSectionComplete(section, docs[section.ID])
	}
	report.Progress = completion.Progress(sections, docs)
	return report, nil
}
