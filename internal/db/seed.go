package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/security"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/google/uuid"
)

// SeedUser is an approved account to make available at boot.
type SeedUser struct {
	Username   string
	Email      string
	Password   string
	Role       user.Role
	Status     user.Status
	FirstName  string
	LastName   string
	Department string
	RollNumber string
	EmployeeID string
}

// DemoUsers are the accounts a dev environment starts with.
func DemoUsers() []SeedUser {
	return []SeedUser{
		{
			Username: "student1", Email: "student1@campus.example", Password: "student123",
			Role: user.RoleStudent, Status: user.StatusActive,
			FirstName: "Priya", LastName: "Sharma", Department: "Computer Science", RollNumber: "CS2026001",
		},
		{
			Username: "faculty1", Email: "faculty1@campus.example", Password: "faculty123",
			Role: user.RoleFaculty, Status: user.StatusActive,
			FirstName: "Arjun", LastName: "Mehta", Department: "Physics", EmployeeID: "FAC1001",
		},
		{
			Username: "student2", Email: "student2@campus.example", Password: "student123",
			Role: user.RoleStudent, Status: user.StatusInactive,
			FirstName: "Kiran", LastName: "Das", Department: "Civil", RollNumber: "CV2026007",
		},
	}
}

// EnsureUsers appends each seed user unless its email is already taken.
func EnsureUsers(ctx context.Context, st store.Store, seeds []SeedUser) (int, error) {
	created := 0

	for _, s := range seeds {
		hash, err := security.HashPassword(s.Password)
		if err != nil {
			return created, err
		}

		now := time.Now().UTC()
		u := user.User{
			ID:           uuid.NewString(),
			Username:     s.Username,
			Email:        s.Email,
			PasswordHash: hash,
			Role:         s.Role,
			Status:       s.Status,
			FirstName:    s.FirstName,
			LastName:     s.LastName,
			Department:   s.Department,
			RollNumber:   s.RollNumber,
			EmployeeID:   s.EmployeeID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = st.AppendUser(ctx, u)
		if errors.Is(err, store.ErrEmailAlreadyUsed) || errors.Is(err, store.ErrDuplicateUser) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}
