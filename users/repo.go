package users

type UserRepo interface {
	Upsert(user *User) error
	Delete(email string) error
	GetByEmail(email string) (*User, error)
	GetByID(id ID) (*User, error)
	List(offset, limit int) (UsersListResponse, error)
}

type UsersListResponse struct {
	Users  []*User `json:"data"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}
