package services

import (
	"sort"
	"time"

	"github.com/Authority98/feedo-sub000/internal/models"
)

// DiffSections rebuilds a profile type's section map from an operator edit
// session and computes the rename mapping persisted answers must follow.
//
// Every edited section gets its id re-derived from the current label, so the
// latest label always wins. A mapping entry is emitted only for sections that
// originated from a persisted one and whose id actually changed; no-op
// renames and brand-new sections are omitted. Sections present in original
// but absent from the edit session are implicitly deleted and deliberately
// not mapped: their stored answers stay put until purged explicitly.
func DiffSections(original map[string]*models.Section, edited []SectionEdit, now time.Time) SectionDiff {
	diff := SectionDiff{
		Sections: make(map[string]*models.Section, len(edited)),
		Mappings: map[string]string{},
	}
	for i, edit := range edited {
		newID := models.GenerateID(edit.Label)
		if newID == "" {
			continue
		}
		section := &models.Section{
			ID:        newID,
			Label:     edit.Label,
			Order:     i,
			Questions: edit.Questions,
			UpdatedAt: now,
		}
		if prev := original[edit.OriginalID]; prev != nil && prev.Label == edit.Label {
			section.UpdatedAt = prev.UpdatedAt
		}
		diff.Sections[newID] = section
		if edit.OriginalID != "" && edit.OriginalID != newID {
			diff.Mappings[edit.OriginalID] = newID
		}
	}
	return diff
}

// SortSections returns the section map as a render-ordered slice.
func SortSections(sections map[string]*models.Section) []*models.Section {
	out := make([]*models.Section, 0, len(sections))
	for _, s := range sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}
