package api

import (
	"github.com/Authority98/feedo-sub000/internal/models"
	"github.com/Authority98/feedo-sub000/internal/services"
)

type profileStoreAdapter struct {
	store Store
}

func newProfileStoreAdapter(store Store) services.ProfileStore {
	return &profileStoreAdapter{store: store}
}

func (a *profileStoreAdapter) InsertProfileType(pt *models.ProfileType) error {
	if pt == nil {
		return services.NewInvalidError("profile type required")
	}
	a.store.AddProfileType(pt)
	return nil
}

func (a *profileStoreAdapter) GetProfileType(id string) (*models.ProfileType, error) {
	return a.store.GetProfileType(id), nil
}

func (a *profileStoreAdapter) ListProfileTypes() ([]*models.ProfileType, error) {
	return a.store.ListProfileTypes(), nil
}

func (a *profileStoreAdapter) UpdateProfileType(pt *models.ProfileType) error {
	if pt == nil {
		return services.NewInvalidError("profile type required")
	}
	if ok := a.store.UpdateProfileType(pt); !ok {
		return services.NewNotFoundError("profile type not found")
	}
	return nil
}

func (a *profileStoreAdapter) DeleteProfileType(id string) error {
	if ok := a.store.DeleteProfileType(id); !ok {
		return services.NewNotFoundError("profile type not found")
	}
	return nil
}

func (a *profileStoreAdapter) ApplySectionRenames(profileTypeID string, mappings map[string]string) error {
	a.store.RenameAnswerSections(profileTypeID, mappings)
	return nil
}

func (a *profileStoreAdapter) PurgeAnswersForSections(profileTypeID string, keep map[string]bool) (int, error) {
	return a.store.PurgeAnswerSections(profileTypeID, keep), nil
}

func (a *profileStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(entry)
}

var _ services.ProfileStore = (*profileStoreAdapter)(nil)
