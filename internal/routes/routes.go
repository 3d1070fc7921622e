// Package routes classifies request paths for the sign-in guard.
package routes

import (
	"slices"
	"strings"
)

type Category int

const (
	Protected Category = iota
	Public
	AuthOnly
	APIAuth
)

func (c Category) String() string {
	switch c {
	case Public:
		return "public"
	case AuthOnly:
		return "auth-only"
	case APIAuth:
		return "api-auth"
	default:
		return "protected"
	}
}

type Table struct {
	Public        []string
	AuthOnly      []string
	APIAuthPrefix string
}

// DefaultTable lists the application's pages.
var DefaultTable = Table{
	Public: []string{
		"/",
		"/auth/new-verification",
	},
	AuthOnly: []string{
		"/auth/login",
		"/auth/register",
		"/auth/error",
		"/auth/reset",
		"/auth/new-password",
	},
	APIAuthPrefix: "/api/auth",
}

type Classifier struct {
	public        map[string]struct{}
	authOnly      map[string]struct{}
	apiAuthPrefix string
}

// WithAuthPages returns a copy of t with the configured sign-in and error
// pages added to the auth-only set, so the guard never redirects a guest to
// a page it protects.
func (t Table) WithAuthPages(pages ...string) Table {
	out := Table{
		Public:        append([]string(nil), t.Public...),
		AuthOnly:      append([]string(nil), t.AuthOnly...),
		APIAuthPrefix: t.APIAuthPrefix,
	}

	for _, p := range pages {
		if p != "" && !slices.Contains(out.AuthOnly, p) {
			out.AuthOnly = append(out.AuthOnly, p)
		}
	}

	return out
}

func NewClassifier(t Table) *Classifier {
	c := &Classifier{
		public:        make(map[string]struct{}, len(t.Public)),
		authOnly:      make(map[string]struct{}, len(t.AuthOnly)),
		apiAuthPrefix: t.APIAuthPrefix,
	}

	for _, p := range t.Public {
		c.public[p] = struct{}{}
	}
	for _, p := range t.AuthOnly {
		c.authOnly[p] = struct{}{}
	}

	return c
}

// * Classify: api-auth по префиксу, остальные категории по точному совпадению пути
func (c *Classifier) Classify(path string) Category {
	if c.apiAuthPrefix != "" && hasPathPrefix(path, c.apiAuthPrefix) {
		return APIAuth
	}

	if _, ok := c.authOnly[path]; ok {
		return AuthOnly
	}

	if _, ok := c.public[path]; ok {
		return Public
	}

	return Protected
}

func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}

	rest := path[len(prefix):]

	return rest == "" || rest[0] == '/' || strings.HasSuffix(prefix, "/")
}
