package response

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	type request struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=6"`
		Code     string `validate:"omitempty,len=6"`
	}

	err := validator.New().Struct(request{Email: "not-an-email", Password: "123", Code: "1"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))

	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Email is not a valid email")
	assert.Contains(t, resp.Error, "field Password must be at least 6 characters")
	assert.Contains(t, resp.Error, "field Code must be exactly 6 characters")
}

func TestOKAndError(t *testing.T) {
	assert.Equal(t, Response{Status: StatusOK}, OK())
	assert.Equal(t, Response{Status: StatusError, Error: "boom"}, Error("boom"))
}
