package signup

import (
	"errors"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/google/uuid"
)

type Status string

const StatusPendingApproval Status = "pending_approval"

var ErrNotFound = errors.New("signup request not found")

// Request is an applicant's registration awaiting administrator disposition.
type Request struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Department  string    `json:"department"`
	Role        user.Role `json:"role"`
	RollNumber  string    `json:"rollNumber,omitempty"`
	EmployeeID  string    `json:"employeeId,omitempty"`
	Status      Status    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Application is the validated form data a Request is built from.
type Application struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string // already formatted for storage
	Department string
	Role       user.Role
	RollNumber string
	EmployeeID string
}

func NewFromApplication(app Application, now time.Time) Request {
	r := Request{
		ID:          uuid.NewString(),
		FirstName:   app.FirstName,
		LastName:    app.LastName,
		Email:       app.Email,
		Phone:       app.Phone,
		Department:  app.Department,
		Role:        app.Role,
		Status:      StatusPendingApproval,
		SubmittedAt: now.UTC(),
	}

	// only the identifier that belongs to the role is kept
	switch app.Role {
	case user.RoleStudent:
		r.RollNumber = app.RollNumber
	case user.RoleFaculty:
		r.EmployeeID = app.EmployeeID
	}

	return r
}

func (r Request) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// RoleIdentifier is the roll number for students and the employee id for faculty.
func (r Request) RoleIdentifier() string {
	if r.Role == user.RoleFaculty {
		return r.EmployeeID
	}
	return r.RollNumber
}

var departments = []string{
	"Computer Science",
	"Electronics",
	"Electrical",
	"Mechanical",
	"Civil",
	"Information Technology",
	"Mathematics",
	"Physics",
	"Chemistry",
	"Management",
}

func Departments() []string {
	out := make([]string, len(departments))
	copy(out, departments)
	return out
}

func IsDepartment(name string) bool {
	for _, d := range departments {
		if d == name {
			return true
		}
	}
	return false
}
