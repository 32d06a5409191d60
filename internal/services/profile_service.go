package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Authority98/feedo-sub000/internal/models"
)

// ProfileStore abstracts persistence operations required by ProfileTypeService.
type ProfileStore interface {
	InsertProfileType(pt *models.ProfileType) error
	GetProfileType(id string) (*models.ProfileType, error)
	ListProfileTypes() ([]*models.ProfileType, error)
	UpdateProfileType(pt *models.ProfileType) error
	DeleteProfileType(id string) error
	// ApplySectionRenames moves stored answer documents from old section ids
	// to new ones in a single atomic step.
	ApplySectionRenames(profileTypeID string, mappings map[string]string) error
	PurgeAnswersForSections(profileTypeID string, keep map[string]bool) (int, error)
	AddAudit(entry AuditEntry)
}

// ProfileTypeService owns the ProfileType -> Section -> Question tree:
// creation, schema edits with answer migration, and section loading.
type ProfileTypeService struct {
	store ProfileStore
	now   func() time.Time
}

func NewProfileTypeService(store ProfileStore) *ProfileTypeService {
	return &ProfileTypeService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type ProfileTypeInput struct {
	Label    string        `json:"label"`
	Subtitle string        `json:"subtitle,omitempty"`
	Icon     string        `json:"icon,omitempty"`
	Sections []SectionEdit `json:"sections"`
}

func (s *ProfileTypeService) CreateProfileType(in ProfileTypeInput, actor string) (*models.ProfileType, error) {
	id := models.GenerateID(in.Label)
	if id == "" {
		return nil, NewInvalidError("label required")
	}
	existing, err := s.store.GetProfileType(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("profile type exists: " + id)
	}
	if err := validateSectionEdits(in.Sections); err != nil {
		return nil, err
	}
	now := s.now()
	diff := DiffSections(nil, in.Sections, now)
	pt := &models.ProfileType{
		ID:       id,
		Label:    in.Label,
		Subtitle: in.Subtitle,
		Icon:     in.Icon,
		Sections: diff.Sections,
		Metadata: models.Metadata{CreatedAt: now, UpdatedAt: now, Version: 1},
	}
	if err := s.store.InsertProfileType(pt); err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: now, Actor: actor, Action: "create_profile_type", Target: id})
	return pt, nil
}

func (s *ProfileTypeService) GetProfileType(id string) (*models.ProfileType, error) {
	pt, err := s.store.GetProfileType(id)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, NewNotFoundError("profile type not found")
	}
	return pt, nil
}

func (s *ProfileTypeService) ListProfileTypes() ([]*models.ProfileType, error) {
	return s.store.ListProfileTypes()
}

// UpdateSections applies an operator edit session: rebuilds the section map,
// persists the new schema and migrates stored answers along any section
// renames. The returned mapping contains only real renames (old != new).
func (s *ProfileTypeService) UpdateSections(id string, edited []SectionEdit, actor string) (*models.ProfileType, map[string]string, error) {
	pt, err := s.store.GetProfileType(id)
	if err != nil {
		return nil, nil, err
	}
	if pt == nil {
		return nil, nil, NewNotFoundError("profile type not found")
	}
	if err := validateSectionEdits(edited); err != nil {
		return nil, nil, err
	}
	now := s.now()
	diff := DiffSections(pt.Sections, edited, now)
	pt.Sections = diff.Sections
	pt.Metadata.UpdatedAt = now
	pt.Metadata.Version++
	if err := s.store.UpdateProfileType(pt); err != nil {
		return nil, nil, err
	}
	if len(diff.Mappings) > 0 {
		if err := s.store.ApplySectionRenames(id, diff.Mappings); err != nil {
			return nil, nil, err
		}
	}
	s.store.AddAudit(AuditEntry{Time: now, Actor: actor, Action: "update_sections", Target: id, Note: strconv.Itoa(len(diff.Mappings)) + " renamed"})
	return pt, diff.Mappings, nil
}

func (s *ProfileTypeService) DeleteProfileType(id, actor string) error {
	pt, err := s.store.GetProfileType(id)
	if err != nil {
		return err
	}
	if pt == nil {
		return NewNotFoundError("profile type not found")
	}
	if err := s.store.DeleteProfileType(id); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "delete_profile_type", Target: id})
	return nil
}

// LoadSections returns the profile type's sections in render order. A missing
// profile type (or one with no section map at all) is NotFound; a present but
// empty section map yields an empty list, which callers render as an empty
// state rather than an error.
func (s *ProfileTypeService) LoadSections(profileTypeID string) ([]*models.Section, error) {
	pt, err := s.store.GetProfileType(profileTypeID)
	if err != nil {
		return nil, err
	}
	if pt == nil || pt.Sections == nil {
		return nil, NewNotFoundError("profile type not found")
	}
	return SortSections(pt.Sections), nil
}

// PurgeOrphanAnswers removes stored answer documents that reference sections
// no longer present in the schema. Deletion of a section never purges
// implicitly; this is the explicit cleanup an operator opts into.
func (s *ProfileTypeService) PurgeOrphanAnswers(profileTypeID, actor string) (int, error) {
	pt, err := s.store.GetProfileType(profileTypeID)
	if err != nil {
		return 0, err
	}
	if pt == nil {
		return 0, NewNotFoundError("profile type not found")
	}
	keep := make(map[string]bool, len(pt.Sections))
	for id := range pt.Sections {
		keep[id] = true
	}
	removed, err := s.store.PurgeAnswersForSections(profileTypeID, keep)
	if err != nil {
		return 0, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "purge_orphan_answers", Target: profileTypeID, Note: strconv.Itoa(removed)})
	return removed, nil
}

func validateSectionEdits(edits []SectionEdit) error {
	seen := map[string]bool{}
	for _, edit := range edits {
		id := models.GenerateID(edit.Label)
		if id == "" {
			return NewInvalidError("section label required")
		}
		if seen[id] {
			return NewConflictError("duplicate section id: " + id)
		}
		seen[id] = true
		for _, q := range edit.Questions {
			if err := validateQuestion(q); err != nil {
				return err
			}
		}
	}
	return nil
}

func isChoiceType(t string) bool {
	return t == models.QuestionMultipleChoice || t == models.QuestionDropdown
}

func knownQuestionType(t string) bool {
	switch t {
	case models.QuestionText, models.QuestionTextarea, models.QuestionMultipleChoice,
		models.QuestionDropdown, models.QuestionDate, models.QuestionFile,
		models.QuestionPhone, models.QuestionRepeater:
		return true
	}
	return false
}

func validateQuestion(q *models.Question) error {
	if q == nil {
		return NewInvalidError("question required")
	}
	if q.ID == "" {
		q.ID = shortID(8)
	}
	if strings.TrimSpace(q.Question) == "" {
		return NewInvalidError("question text required: " + q.ID)
	}
	if !knownQuestionType(q.Type) {
		return NewInvalidError("unknown question type: " + q.Type)
	}
	if isChoiceType(q.Type) {
		if len(q.Options) < 2 {
			return NewInvalidError("choice question needs at least 2 options: " + q.ID)
		}
	} else if len(q.Options) > 0 {
		return NewInvalidError("options only allowed on choice questions: " + q.ID)
	}
	if q.Type == models.QuestionRepeater {
		if len(q.RepeaterFields) == 0 {
			return NewInvalidError("repeater needs at least one field: " + q.ID)
		}
		for _, f := range q.RepeaterFields {
			if err := validateRepeaterField(q.ID, f); err != nil {
				return err
			}
		}
	} else if len(q.RepeaterFields) > 0 {
		return NewInvalidError("repeaterFields only allowed on repeater questions: " + q.ID)
	}
	return validateRules(q.ID, q.Validation)
}

func validateRepeaterField(owner string, f *models.RepeaterField) error {
	if f == nil {
		return NewInvalidError("repeater field required: " + owner)
	}
	if f.ID == "" {
		f.ID = shortID(8)
	}
	if f.Type == models.QuestionRepeater {
		return NewInvalidError("repeater fields cannot nest repeaters: " + owner)
	}
	if !knownQuestionType(f.Type) {
		return NewInvalidError("unknown repeater field type: " + f.Type)
	}
	if isChoiceType(f.Type) && len(f.Options) < 2 {
		return NewInvalidError("choice field needs at least 2 options: " + f.ID)
	}
	return validateRules(f.ID, f.Validation)
}

func validateRules(id string, v *models.Validation) error {
	if v == nil {
		return nil
	}
	if v.MaxLength > 0 && v.MinLength > v.MaxLength {
		return NewInvalidError("minLength exceeds maxLength: " + id)
	}
	if v.MaxGroups > 0 && v.MinGroups > v.MaxGroups {
		return NewInvalidError("minGroups exceeds maxGroups: " + id)
	}
	if v.Pattern != "" {
		if _, err := regexp.Compile(v.Pattern); err != nil {
			return NewInvalidError(fmt.Sprintf("invalid pattern on %s: %v", id, err))
		}
	}
	return nil
}
