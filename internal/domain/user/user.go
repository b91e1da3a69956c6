package user

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleFaculty:
		return true
	default:
		return false
	}
}

// IsApplicant reports whether the role can be requested through signup.
func (r Role) IsApplicant() bool {
	return r == RoleStudent || r == RoleFaculty
}

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Phone        string     `json:"phone,omitempty"`
	Department   string     `json:"department,omitempty"`
	RollNumber   string     `json:"rollNumber,omitempty"`
	EmployeeID   string     `json:"employeeId,omitempty"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// MatchesIdentifier accepts either the email (case-insensitive) or the exact username.
func (u User) MatchesIdentifier(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return false
	}
	if u.Email != "" && strings.EqualFold(u.Email, identifier) {
		return true
	}
	return u.Username != "" && u.Username == identifier
}

type Capabilities struct {
	ManageUsers       bool `json:"manageUsers"`
	AssignCredentials bool `json:"assignCredentials"`
	ViewAllData       bool `json:"viewAllData"`
	ModifySystem      bool `json:"modifySystem"`
}

func AdminCapabilities() Capabilities {
	return Capabilities{
		ManageUsers:       true,
		AssignCredentials: true,
		ViewAllData:       true,
		ModifySystem:      true,
	}
}

// Principal is an authenticated identity with its capability set.
type Principal struct {
	UserID          string       `json:"userId"`
	Identifier      string       `json:"identifier"`
	Name            string       `json:"name"`
	Role            Role         `json:"role"`
	Capabilities    Capabilities `json:"capabilities"`
	AuthenticatedAt time.Time    `json:"authenticatedAt"`
}
