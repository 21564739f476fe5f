package employees

import (
	"fmt"
	"time"

	"github.com/peopledesk/peopledesk/internal/platform/httpx"
)

// Status is the employment state of an employee.
type Status string

// Employment states.
const (
	StatusActive     Status = "active"
	StatusOnLeave    Status = "on_leave"
	StatusTerminated Status = "terminated"
)

var (
	// ErrNotFound indicates the employee does not exist.
	ErrNotFound = fmt.Errorf("employees: employee %w", httpx.ErrNotFound)
	// ErrDuplicate indicates the employee code or email is taken.
	ErrDuplicate = fmt.Errorf("employees: code or email %w", httpx.ErrDuplicate)
	// ErrInvalid indicates the input failed validation.
	ErrInvalid = fmt.Errorf("employees: %w", httpx.ErrValidation)
)

// Employee is an employee record.
type Employee struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	DepartmentID   *int64    `json:"department_id,omitempty"`
	DepartmentName string    `json:"department_name,omitempty"`
	Position       string    `json:"position"`
	Status         Status    `json:"status"`
	HiredAt        time.Time `json:"hired_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Input carries the writable fields of an employee.
type Input struct {
	Code         string    `json:"code" validate:"required,max=32"`
	FullName     string    `json:"full_name" validate:"required,max=160"`
	Email        string    `json:"email" validate:"required,email"`
	DepartmentID *int64    `json:"department_id" validate:"omitempty,gt=0"`
	Position     string    `json:"position" validate:"max=120"`
	Status       Status    `json:"status" validate:"omitempty,oneof=active on_leave terminated"`
	HiredAt      time.Time `json:"hired_at" validate:"required"`
}
