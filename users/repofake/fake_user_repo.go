package fakeuserrepo

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jrsteele09/hr-console/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[users.ID]*users.User
	emailIds map[string]users.ID // email to user id
	nextID   int
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[users.ID]*users.User),
		emailIds: make(map[string]users.ID),
	}
}

// Upsert stores a copy of user. Users without an ID get the next numeric ID,
// matching the backend's auto-increment keys.
func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email := strings.ToLower(user.Email)
	if email == "" {
		return errors.New("email is required")
	}
	if user.ID == "" {
		if existing, ok := ur.emailIds[email]; ok {
			user.ID = existing
		} else {
			ur.nextID++
			user.ID = users.ID(strconv.Itoa(ur.nextID))
		}
	}
	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[email] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email = strings.ToLower(email)
	userID, ok := ur.emailIds[email]
	if !ok {
		return errors.New("not found")
	}
	delete(ur.emailIds, email)
	delete(ur.users, userID)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[strings.ToLower(email)]
	if !ok {
		return nil, errors.New("not found")
	}
	u := *ur.users[id]
	return &u, nil
}

func (ur *FakeUserRepo) GetByID(id users.ID) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	stored, ok := ur.users[id]
	if !ok {
		return nil, errors.New("not found")
	}
	u := *stored
	return &u, nil
}

func (ur *FakeUserRepo) List(offset, limit int) (users.UsersListResponse, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		u := *v
		userList = append(userList, &u)
	}

	sort.Slice(userList, func(i, j int) bool {
		a, _ := strconv.Atoi(string(userList[i].ID))
		b, _ := strconv.Atoi(string(userList[j].ID))
		if a != b {
			return a < b
		}
		return userList[i].ID < userList[j].ID
	})

	total := len(userList)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return users.UsersListResponse{Users: []*users.User{}, Total: total, Offset: offset, Limit: limit}, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	return users.UsersListResponse{
		Users:  userList[offset:end],
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}, nil
}
