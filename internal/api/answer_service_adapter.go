package api

import (
	"github.com/Authority98/feedo-sub000/internal/models"
	"github.com/Authority98/feedo-sub000/internal/services"
)

type answerStoreAdapter struct {
	store Store
}

func newAnswerStoreAdapter(store Store) services.AnswerStore {
	return &answerStoreAdapter{store: store}
}

func (a *answerStoreAdapter) GetSectionAnswers(userID, sectionID string) (*models.SectionAnswerDocument, error) {
	return a.store.GetSectionAnswers(userID, sectionID), nil
}

func (a *answerStoreAdapter) PutSectionAnswers(userID string, doc *models.SectionAnswerDocument, expectedVersion int64) (*models.SectionAnswerDocument, error) {
	saved, ok := a.store.PutSectionAnswers(userID, doc, expectedVersion)
	if !ok {
		return nil, services.NewConflictError("section answers changed in another session")
	}
	return saved, nil
}

func (a *answerStoreAdapter) ListSectionAnswers(userID string) (map[string]*models.SectionAnswerDocument, error) {
	return a.store.ListSectionAnswers(userID), nil
}

var _ services.AnswerStore = (*answerStoreAdapter)(nil)
