package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultTable)

	tests := []struct {
		path string
		want Category
	}{
		{"/", Public},
		{"/auth/new-verification", Public},
		{"/auth/login", AuthOnly},
		{"/auth/register", AuthOnly},
		{"/auth/error", AuthOnly},
		{"/auth/reset", AuthOnly},
		{"/auth/new-password", AuthOnly},
		{"/api/auth", APIAuth},
		{"/api/auth/login", APIAuth},
		{"/api/auth/session/refresh", APIAuth},
		{"/api/authority", Protected},
		{"/settings", Protected},
		{"/auth/login/extra", Protected},
		{"/server", Protected},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.path))
		})
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "public", Public.String())
	assert.Equal(t, "auth-only", AuthOnly.String())
	assert.Equal(t, "api-auth", APIAuth.String())
	assert.Equal(t, "protected", Protected.String())
}

func TestWithAuthPages(t *testing.T) {
	table := DefaultTable.WithAuthPages("/login", "/oops", "/auth/login", "")
	c := NewClassifier(table)

	assert.Equal(t, AuthOnly, c.Classify("/login"))
	assert.Equal(t, AuthOnly, c.Classify("/oops"))
	assert.Equal(t, AuthOnly, c.Classify("/auth/login"))
	assert.Equal(t, Protected, c.Classify("/settings"))

	assert.Len(t, table.AuthOnly, len(DefaultTable.AuthOnly)+2)
	assert.NotContains(t, DefaultTable.AuthOnly, "/login")
}
