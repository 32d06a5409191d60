package completion

import (
	"math"

	"github.com/Authority98/feedo-sub000/internal/models"
)

// Progress computes the weighted global completion percentage over all
// sections of a schema. Non-repeater questions weigh 1. A repeater with F
// fields and G persisted groups weighs F*G; with no persisted groups it still
// weighs F, so an untouched repeater pulls progress below 100 instead of
// vanishing from the denominator. Repeater credit is granted per individual
// field per group, so partially filled groups earn partial credit.
//
// The result is rounded and clamped to [0,100]; an empty schema yields 0.
func Progress(sections []*models.Section, docs map[string]*models.SectionAnswerDocument) int {
	totalFields := 0
	completedFields := 0
	for _, section := range sections {
		if section == nil {
			continue
		}
		var answers map[string]*models.AnswerEntry
		if doc := docs[section.ID]; doc != nil {
			answers = answersByID(doc)
		}
		for _, q := range section.Questions {
			if q == nil {
				continue
			}
			if q.Type == models.QuestionRepeater {
				fieldCount := len(q.RepeaterFields)
				if fieldCount == 0 {
					continue
				}
				var groups []map[string]any
				if entry := answers[q.ID]; entry != nil {
					groups, _ = groupList(entry.Answer)
				}
				groupCount := len(groups)
				if groupCount < 1 {
					groupCount = 1
				}
				totalFields += fieldCount * groupCount
				for _, group := range groups {
					for _, f := range q.RepeaterFields {
						var value any
						if group != nil {
							value = group[f.ID]
						}
						if !IsEmpty(value, f.Type) {
							completedFields++
						}
					}
				}
				continue
			}
			totalFields++
			if entry := answers[q.ID]; entry != nil && !IsEmpty(entry.Answer, q.Type) {
				completedFields++
			}
		}
	}
	if totalFields == 0 {
		return 0
	}
	pct := int(math.Round(float64(completedFields) / float64(totalFields) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
