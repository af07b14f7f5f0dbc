package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the subset of id_token claims shown on the status
// endpoint.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ParseIdentity reads claims from the provider id_token without
// signature verification. The token arrived over TLS directly from the
// token endpoint and is used for display only, never for authorization.
func ParseIdentity(idToken string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return Identity{}, fmt.Errorf("parse id_token: %w", err)
	}

	identity := Identity{}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	} else if given, ok := claims["given_name"].(string); ok {
		identity.Name = given
		if family, ok := claims["family_name"].(string); ok {
			identity.Name += " " + family
		}
	}
	return identity, nil
}

// Identity reads the stored id_token and parses it.
func (m *Manager) Identity() (Identity, error) {
	tokens, err := m.Tokens()
	if err != nil {
		return Identity{}, err
	}
	if tokens.IDToken() == "" {
		return Identity{}, fmt.Errorf("no id_token stored")
	}
	return ParseIdentity(tokens.IDToken())
}
