package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// MaxNameLength is the longest counter name accepted.
const MaxNameLength = 128

// Counter is a named integer persisted in the counters table.
type Counter struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Value     int64     `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCounter is a request to create a counter. A nil Value means 0.
type NewCounter struct {
	Name  string `json:"name" validate:"notblank,max=128"`
	Value *int64 `json:"value,omitempty"`
}

// UpdateCounter is a partial update. Nil fields are left unchanged.
type UpdateCounter struct {
	ID    int64   `json:"id" validate:"required"`
	Name  *string `json:"name,omitempty" validate:"omitnil,notblank,max=128"`
	Value *int64  `json:"value,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate reports whether the request may be applied.
func (nc NewCounter) Validate() error {
	if err := validate.Struct(nc); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describe(err))
	}
	return nil
}

// Validate reports whether the request may be applied.
func (uc UpdateCounter) Validate() error {
	if err := validate.Struct(uc); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describe(err))
	}
	return nil
}

// ValidateID rejects a missing (zero) counter id.
func ValidateID(id int64) error {
	if err := validate.Var(id, "required"); err != nil {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	return nil
}

// describe flattens validator output into a short message.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "notblank":
			msgs = append(msgs, field+" must not be blank")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
