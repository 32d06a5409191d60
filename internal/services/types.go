package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Authority98/feedo-sub000/internal/models"
)

// SectionEdit is one section as it stands in an operator edit session.
// Sections loaded from an existing profile type carry OriginalID so a rename
// can be traced back to the persisted section id; brand-new sections leave it
// empty.
type SectionEdit struct {
	OriginalID string             `json:"originalId,omitempty"`
	Label      string             `json:"label"`
	Questions  []*models.Question `json:"questions"`
}

// SectionDiff is the outcome of reconciling an edit session against the
// persisted sections: the rebuilt section map plus the old-id to new-id
// mapping the persistence layer must apply to stored answers.
type SectionDiff struct {
	Sections map[string]*models.Section
	Mappings map[string]string
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
