package api

import (
	"github.com/Authority98/feedo-sub000/internal/models"
	"github.com/Authority98/feedo-sub000/internal/services"
)

// Store is the persistence surface shared by the in-memory and sqlite
// backends. Lookups return nil for missing records; write methods report
// success with a bool where a caller can act on it.
type Store interface {
	AddProfileType(pt *models.ProfileType)
	GetProfileType(id string) *models.ProfileType
	ListProfileTypes() []*models.ProfileType
	UpdateProfileType(pt *models.ProfileType) bool
	DeleteProfileType(id string) bool

	GetSectionAnswers(userID, sectionID string) *models.SectionAnswerDocument
	// PutSectionAnswers replaces the whole document. ok is false when
	// expectedVersion does not match the stored version.
	PutSectionAnswers(userID string, doc *models.SectionAnswerDocument, expectedVersion int64) (*models.SectionAnswerDocument, bool)
	ListSectionAnswers(userID string) map[string]*models.SectionAnswerDocument
	// RenameAnswerSections moves stored documents from old section ids to new
	// ones for every user, atomically per backend, and returns the move count.
	RenameAnswerSections(profileTypeID string, mappings map[string]string) int
	PurgeAnswerSections(profileTypeID string, keep map[string]bool) int

	AddUser(u *models.User)
	FindUserByEmail(email string) *models.User

	AddAudit(e services.AuditEntry)
	ListAudit() []services.AuditEntry
}

var _ Store = (*memoryStore)(nil)
