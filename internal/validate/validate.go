package validate

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Add appends non-nil field errors.
func (e *Errs) Add(errs ...*ErrField) {
	for _, ef := range errs {
		if ef != nil {
			*e = append(*e, *ef)
		}
	}
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func Email(field, value string) *ErrField {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	at := strings.LastIndex(v, "@")
	if at < 1 || at == len(v)-1 || strings.ContainsAny(v, " |") {
		return &ErrField{Field: field, Msg: "invalid email"}
	}
	return nil
}

func MaxLen(field, value string, max int) *ErrField {
	if len(value) > max {
		return &ErrField{Field: field, Msg: "must be at most " + strconv.Itoa(max) + " characters"}
	}
	return nil
}

// NoPipe rejects values that would shift fields in a pipe separated hash string.
func NoPipe(field, value string) *ErrField {
	if strings.Contains(value, "|") {
		return &ErrField{Field: field, Msg: "must not contain '|'"}
	}
	return nil
}

// PositiveAmount accepts an empty value; anything else must be a decimal > 0.
func PositiveAmount(field, value string) *ErrField {
	if value == "" {
		return nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return &ErrField{Field: field, Msg: "must be a decimal number"}
	}
	if !d.IsPositive() {
		return &ErrField{Field: field, Msg: "must be > 0"}
	}
	return nil
}
