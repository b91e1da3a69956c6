package registration

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/phone"
	"github.com/go-playground/validator/v10"
)

type Identity struct {
	Role      user.Role `json:"role" validate:"required,oneof=student faculty"`
	FirstName string    `json:"firstName" validate:"required"`
	LastName  string    `json:"lastName" validate:"required"`
	Email     string    `json:"email" validate:"required"`
}

type Contact struct {
	Phone string `json:"phone"`
}

type Academic struct {
	Department    string `json:"department" validate:"required,department"`
	RollNumber    string `json:"rollNumber"`
	EmployeeID    string `json:"employeeId"`
	TermsAccepted bool   `json:"termsAccepted" validate:"required"`
}

func (i Identity) trimmed() Identity {
	i.Role = user.Role(strings.ToLower(strings.TrimSpace(string(i.Role))))
	i.FirstName = strings.TrimSpace(i.FirstName)
	i.LastName = strings.TrimSpace(i.LastName)
	i.Email = strings.TrimSpace(i.Email)
	return i
}

func (a Academic) trimmed() Academic {
	a.Department = strings.TrimSpace(a.Department)
	a.RollNumber = strings.TrimSpace(a.RollNumber)
	a.EmployeeID = strings.TrimSpace(a.EmployeeID)
	return a
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names so callers can point at the right input
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return signup.IsDepartment(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register department validation: %v", err))
	}

	return v
}

// missingFields runs struct validation and returns the failing field names.
func missingFields(s any) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"form"}
	}

	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	return out
}

func checkIdentity(i Identity) []string {
	return missingFields(i)
}

func checkContact(rule phone.Rule, c Contact) []string {
	kind, err := rule.Validate(c.Phone)
	if err != nil || kind == phone.KindEmpty {
		return []string{"phone"}
	}
	return nil
}

func checkAcademic(role user.Role, a Academic) []string {
	missing := missingFields(a)

	switch role {
	case user.RoleStudent:
		if a.RollNumber == "" {
			missing = append(missing, "rollNumber")
		}
	case user.RoleFaculty:
		if a.EmployeeID == "" {
			missing = append(missing, "employeeId")
		}
	}
	return missing
}
