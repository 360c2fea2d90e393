package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
	jwt.RegisteredClaims
}

// AuthUser is the authenticated caller placed in the request context
type AuthUser struct {
	ID       int64
	Username string
	Groups   []string
}

// InAnyGroup reports whether the user belongs to at least one of groups.
func (u *AuthUser) InAnyGroup(groups ...string) bool {
	for _, want := range groups {
		for _, have := range u.Groups {
			if have == want {
				return true
			}
		}
	}
	return false
}
