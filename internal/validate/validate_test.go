package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpers(t *testing.T) {
	assert.NotNil(t, Required("f", "  "))
	assert.Nil(t, Required("f", "x"))

	assert.Nil(t, Email("email", ""))
	assert.Nil(t, Email("email", "jane@x.com"))
	assert.NotNil(t, Email("email", "jane"))
	assert.NotNil(t, Email("email", "@x.com"))
	assert.NotNil(t, Email("email", "jane@"))
	assert.NotNil(t, Email("email", "ja|ne@x.com"))

	assert.NotNil(t, MaxLen("f", "abcdef", 5))
	assert.Nil(t, MaxLen("f", "abcde", 5))

	assert.NotNil(t, NoPipe("f", "a|b"))

	assert.Nil(t, PositiveAmount("amount", ""))
	assert.Nil(t, PositiveAmount("amount", "499"))
	assert.NotNil(t, PositiveAmount("amount", "0"))
	assert.NotNil(t, PositiveAmount("amount", "-1"))
	assert.NotNil(t, PositiveAmount("amount", "ten"))
}

func TestErrs(t *testing.T) {
	var errs Errs
	errs.Add(Required("a", ""), nil, Required("b", ""))
	assert.Len(t, errs, 2)
	assert.Equal(t, "a: required; b: required", errs.Error())
}
