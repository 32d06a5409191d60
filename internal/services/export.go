package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"

	"github.com/Authority98/feedo-sub000/internal/models"
)

// AnswerRow is one exported answer in long format.
type AnswerRow struct {
	SectionID  string
	QuestionID string
	Question   string
	Type       string
	Answer     any
}

// ExportAnswersCSV renders one user's answer documents into a long-format
// CSV, one row per answered question. Values keep their JSON encoding so
// nested phone/file/repeater shapes survive the trip.
func ExportAnswersCSV(docs map[string]*models.SectionAnswerDocument) ([]byte, error) {
	sectionIDs := make([]string, 0, len(docs))
	for id := range docs {
		sectionIDs = append(sectionIDs, id)
	}
	sort.Strings(sectionIDs)

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"section_id", "question_id", "question", "type", "answer"})
	for _, sectionID := range sectionIDs {
		doc := docs[sectionID]
		if doc == nil {
			continue
		}
		for _, entry := range doc.Questions {
			if entry == nil {
				continue
			}
			rec := []string{sectionID, entry.ID, entry.Question, entry.Type, encodeAnswer(entry.Answer)}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func encodeAnswer(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
