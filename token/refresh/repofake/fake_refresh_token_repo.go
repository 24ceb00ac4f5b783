package refreshrepofake

import (
	"sync"

	"github.com/jrsteele09/hr-console/token/refresh"
	"github.com/jrsteele09/hr-console/users"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens  map[string]refresh.StoredRefreshToken
	userIDs map[users.ID]map[string]struct{} // user ID to its tokens
	lock    sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens:  make(map[string]refresh.StoredRefreshToken),
		userIDs: make(map[users.ID]map[string]struct{}),
	}
}

func (tr *FakeRefreshTokenRepo) Upsert(refreshToken *refresh.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	tr.tokens[refreshToken.Token] = *refreshToken
	set, ok := tr.userIDs[refreshToken.UserID]
	if !ok {
		set = make(map[string]struct{})
		tr.userIDs[refreshToken.UserID] = set
	}
	set[refreshToken.Token] = struct{}{}
	return nil
}

func (tr *FakeRefreshTokenRepo) Delete(token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return refresh.ErrNotFound
	}
	delete(tr.tokens, token)
	if set, ok := tr.userIDs[rt.UserID]; ok {
		delete(set, token)
		if len(set) == 0 {
			delete(tr.userIDs, rt.UserID)
		}
	}
	return nil
}

func (tr *FakeRefreshTokenRepo) Get(token string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return nil, refresh.ErrNotFound
	}
	return &rt, nil
}

func (tr *FakeRefreshTokenRepo) DeleteByUserID(userID users.ID) (int, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	set := tr.userIDs[userID]
	for token := range set {
		delete(tr.tokens, token)
	}
	delete(tr.userIDs, userID)
	return len(set), nil
}

func (tr *FakeRefreshTokenRepo) Count() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return len(tr.tokens)
}
