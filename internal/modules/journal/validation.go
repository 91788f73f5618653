package journal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// noteRule must stay equal to the validate tag on BuyInput.Note
const noteRule = "omitempty,max=2000"

// Validator checks buy and sell inputs before they reach the database
type Validator struct {
	validate *validator.Validate
}

// FieldError describes one rejected field
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field. It matches ErrValidation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(msgs, "; "))
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidator creates a validator using json field names in messages
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateBuy validates a normalized buy input
func (v *Validator) ValidateBuy(in BuyInput) error {
	fields := v.structErrors(in)
	if !finite(in.Quantity) {
		fields = appendUnique(fields, FieldError{Field: "quantity", Tag: "finite", Message: "quantity must be a finite number"})
	}
	if !finite(in.BuyPrice) {
		fields = appendUnique(fields, FieldError{Field: "buy_price", Tag: "finite", Message: "buy_price must be a finite number"})
	}
	return asError(fields)
}

// ValidateSell validates a normalized sell input
func (v *Validator) ValidateSell(in SellInput) error {
	fields := v.structErrors(in)
	if !finite(in.Quantity) {
		fields = appendUnique(fields, FieldError{Field: "quantity", Tag: "finite", Message: "quantity must be a finite number"})
	}
	if !finite(in.SellPrice) {
		fields = appendUnique(fields, FieldError{Field: "sell_price", Tag: "finite", Message: "sell_price must be a finite number"})
	}
	return asError(fields)
}

// ValidateNote applies the BuyInput note rule to a standalone note
func (v *Validator) ValidateNote(note *string) error {
	if note == nil {
		return nil
	}
	err := v.validate.Var(*note, noteRule)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return asError([]FieldError{{Field: "note", Tag: "invalid", Message: err.Error()}})
	}
	fields := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, FieldError{
			Field:   "note",
			Tag:     fe.Tag(),
			Message: fmt.Sprintf("note must be at most %s characters", fe.Param()),
		})
	}
	return asError(fields)
}

func (v *Validator) structErrors(s interface{}) []FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []FieldError{{Field: "input", Tag: "invalid", Message: err.Error()}}
	}

	fields := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func appendUnique(fields []FieldError, fe FieldError) []FieldError {
	for _, f := range fields {
		if f.Field == fe.Field {
			return fields
		}
	}
	return append(fields, fe)
}

func asError(fields []FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
