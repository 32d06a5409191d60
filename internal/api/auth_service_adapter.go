package api

import (
	"github.com/Authority98/feedo-sub000/internal/models"
	"github.com/Authority98/feedo-sub000/internal/services"
)

type authStoreAdapter struct {
	store Store
}

func newAuthStoreAdapter(store Store) services.AuthStore {
	return &authStoreAdapter{store: store}
}

func (a *authStoreAdapter) FindUserByEmail(email string) (*models.User, error) {
	return a.store.FindUserByEmail(email), nil
}

func (a *authStoreAdapter) AddUser(u *models.User) error {
	if u == nil {
		return services.NewInvalidError("user required")
	}
	a.store.AddUser(u)
	return nil
}

var _ services.AuthStore = (*authStoreAdapter)(nil)
