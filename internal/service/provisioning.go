package service

import (
	"fmt"
	"strings"

	"github.com/labtrack/labtrack-api/internal/models"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
)

// ProvisioningFields carries the role-specific attributes supplied when an
// account is created.
type ProvisioningFields struct {
	EmployeeCode string
	StudentCode  string
	FirstName    string
	LastName     string
	YearLevel    string
	Section      string
	Gender       string
}

// UserProvisioningPolicy is pure decision logic for new accounts: which
// fields each role requires and what the bootstrap credential is. It holds
// no storage and performs no I/O.
type UserProvisioningPolicy struct{}

// Validate checks the role-specific required fields. Each role variant has
// its own exhaustive rule set so adding a role is a deliberate extension,
// not another branch in a growing conditional.
func (UserProvisioningPolicy) Validate(role models.UserRole, fields ProvisioningFields) error {
	var missing []string

	switch role {
	case models.RoleAdmin, models.RoleTeacher:
		if fields.EmployeeCode == "" {
			missing = append(missing, "employee_code")
		}
	case models.RoleWorkingStudent:
		if fields.StudentCode == "" {
			missing = append(missing, "student_code")
		}
		if fields.YearLevel == "" {
			missing = append(missing, "year_level")
		}
		if fields.Section == "" {
			missing = append(missing, "section")
		}
		if fields.Gender == "" {
			missing = append(missing, "gender")
		}
	case models.RoleStudent:
		if fields.StudentCode == "" {
			missing = append(missing, "student_code")
		}
		if fields.FirstName == "" && fields.LastName == "" {
			missing = append(missing, "full_name")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported role: %q", role))
	}

	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// DefaultPassword returns the bootstrap credential: the role-specific code.
// A deliberate low-friction policy; callers must prompt a password change
// but this engine does not enforce it.
func (UserProvisioningPolicy) DefaultPassword(role models.UserRole, fields ProvisioningFields) (string, error) {
	switch role {
	case models.RoleAdmin, models.RoleTeacher:
		if fields.EmployeeCode == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "employee code is required")
		}
		return fields.EmployeeCode, nil
	case models.RoleStudent, models.RoleWorkingStudent:
		if fields.StudentCode == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "student code is required")
		}
		return fields.StudentCode, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported role: %q", role))
	}
}

// Code returns the role-specific identifier that doubles as the login name.
func (UserProvisioningPolicy) Code(role models.UserRole, fields ProvisioningFields) string {
	if role == models.RoleAdmin || role == models.RoleTeacher {
		return fields.EmployeeCode
	}
	return fields.StudentCode
}
