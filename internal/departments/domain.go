package departments

import (
	"fmt"
	"time"

	"github.com/peopledesk/peopledesk/internal/platform/httpx"
)

var (
	// ErrDuplicate indicates the department code or name is taken.
	ErrDuplicate = fmt.Errorf("departments: department %w", httpx.ErrDuplicate)
	// ErrInvalid indicates the input failed validation.
	ErrInvalid = fmt.Errorf("departments: %w", httpx.ErrValidation)
)

// Department is an organisational unit employees belong to.
type Department struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Headcount int       `json:"headcount"`
	CreatedAt time.Time `json:"created_at"`
}

// Input carries the writable fields of a department.
type Input struct {
	Code string `json:"code" validate:"required,alphanum,max=16"`
	Name string `json:"name" validate:"required,max=120"`
}
