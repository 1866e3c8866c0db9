package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateUserParams struct {
	Email        string
	Username     string
	PasswordHash string
}

// PublicUser is the serialized form returned to other users.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

type UserSearchPage struct {
	Count    int
	Page     int
	PageSize int
	Users    []User
}

func (p UserSearchPage) HasNext() bool {
	return p.Page*p.PageSize < p.Count
}

func (p UserSearchPage) HasPrevious() bool {
	return p.Page > 1
}
