package completion

import "github.com/Authority98/feedo-sub000/internal/models"

// IsSectionComplete reports whether every effectively-required question in
// the section has a filled answer in doc. When no question is explicitly
// required, all of them are treated as required, so a section never counts
// complete without at least one stored answer.
//
// This boolean is intentionally independent from Progress: the weighted
// percentage grants partial credit inside repeater groups, so "every section
// complete" and "progress == 100" are related but not guaranteed to coincide.
func IsSectionComplete(section *models.Section, doc *models.SectionAnswerDocument) bool {
	if section == nil || doc == nil || len(doc.Questions) == 0 {
		return false
	}
	required := requiredQuestions(section.Questions)
	if len(required) == 0 {
		return false
	}
	answers := answersByID(doc)
	for _, q := range required {
		entry, ok := answers[q.ID]
		if !ok {
			return false
		}
		if q.Type == models.QuestionRepeater {
			if !repeaterComplete(q, entry.Answer) {
				return false
			}
			continue
		}
		if IsEmpty(entry.Answer, q.Type) {
			return false
		}
	}
	return true
}

// repeaterComplete requires a non-empty group array in which every group
// fills every effectively-required repeater field.
func repeaterComplete(q *models.Question, answer any) bool {
	groups, ok := groupList(answer)
	if !ok || len(groups) == 0 {
		return false
	}
	fields := requiredFields(q.RepeaterFields)
	for _, group := range groups {
		for _, f := range fields {
			var value any
			if group != nil {
				value = group[f.ID]
			}
			if IsEmpty(value, f.Type) {
				return false
			}
		}
	}
	return true
}

func requiredQuestions(questions []*models.Question) []*models.Question {
	required := make([]*models.Question, 0, len(questions))
	for _, q := range questions {
		if q != nil && q.Required {
			required = append(required, q)
		}
	}
	if len(required) > 0 {
		return required
	}
	all := make([]*models.Question, 0, len(questions))
	for _, q := range questions {
		if q != nil {
			all = append(all, q)
		}
	}
	return all
}

func requiredFields(fields []*models.RepeaterField) []*models.RepeaterField {
	required := make([]*models.RepeaterField, 0, len(fields))
	for _, f := range fields {
		if f != nil && f.Required {
			required = append(required, f)
		}
	}
	if len(required) > 0 {
		return required
	}
	all := make([]*models.RepeaterField, 0, len(fields))
	for _, f := range fields {
		if f != nil {
			all = append(all, f)
		}
	}
	return all
}

func answersByID(doc *models.SectionAnswerDocument) map[string]*models.AnswerEntry {
	out := make(map[string]*models.AnswerEntry, len(doc.Questions))
	for _, entry := range doc.Questions {
		if entry != nil && entry.ID != "" {
			out[entry.ID] = entry
		}
	}
	return out
}
