// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxNicknameLen = 36
)

var (
	ErrNicknameTooLong = errors.New("nickname too long")
	ErrNicknameEmpty   = errors.New("nickname empty")
)

type UserID string

// User is the verified identity behind a signaling connection.
// Established once per connection and immutable afterwards.
type User struct {
	UID      UserID `json:"uid"`
	Nickname string `json:"nickname"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(nickname string) (*User, error) {
	if len(nickname) == 0 {
		return nil, ErrNicknameEmpty
	}
	if len(nickname) > MaxNicknameLen {
		return nil, ErrNicknameTooLong
	}
	return &User{UID: UserID(uuid.NewString()), Nickname: nickname}, nil
}
