// Package auth checks front-end credentials and hands out a Session that
// carries the caller's role. The record library itself never looks at it.
package auth

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrUnknownRole        = errors.New("unknown role")
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleTeacher:
		return Role(s), nil
	}
	return "", errors.Wrapf(ErrUnknownRole, "%q", s)
}

type Session struct {
	User string
	Role Role
}

// Require fails with ErrForbidden unless the session has one of roles.
func (s Session) Require(action string, roles ...Role) error {
	for _, r := range roles {
		if s.Role == r {
			return nil
		}
	}
	return errors.Wrapf(ErrForbidden, "%s needs role %v, %s is %s", action, roles, s.User, s.Role)
}

type Authenticator interface {
	Authenticate(user, password string) (Session, error)
}

type credential struct {
	role Role
	hash []byte
}

// BcryptAuthenticator accepts users whose password matches a stored
// bcrypt hash.
type BcryptAuthenticator struct {
	users map[string]credential
}

func NewBcryptAuthenticator() *BcryptAuthenticator {
	return &BcryptAuthenticator{users: make(map[string]credential)}
}

func (a *BcryptAuthenticator) Add(user string, role Role, hash string) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}

	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return errors.Wrapf(err, "hash of user %s", user)
	}

	a.users[user] = credential{role: role, hash: []byte(hash)}
	return nil
}

func (a *BcryptAuthenticator) Len() int {
	return len(a.users)
}

func (a *BcryptAuthenticator) Authenticate(user, password string) (Session, error) {
	c, ok := a.users[user]
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(c.hash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return Session{User: user, Role: c.role}, nil
}

// Open grants admin to anyone. It is used when no users are configured.
type Open struct{}

func (Open) Authenticate(user, _ string) (Session, error) {
	if user == "" {
		user = "anonymous"
	}
	return Session{User: user, Role: RoleAdmin}, nil
}

// HashPassword hashes a password for use in configuration.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "could not hash password")
	}
	return string(b), nil
}
