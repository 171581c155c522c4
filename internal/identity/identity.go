// Package identity extracts the verified caller identity from JWT claims
// placed in the Fiber context by the auth middleware.
package identity

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrNoIdentity = errors.New("no verified identity in context")

// Claims is the identity record carried by every verified credential.
type Claims struct {
	UserID uint
	Email  string
	Role   string
}

// FromContext returns the verified caller identity, or ErrNoIdentity when the
// request carried no valid credential.
func FromContext(c *fiber.Ctx) (*Claims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoIdentity
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrNoIdentity
	}

	sub, ok := mc["sub"].(string)
	if !ok {
		return nil, ErrNoIdentity
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return nil, ErrNoIdentity
	}

	email, _ := mc["email"].(string)
	role, _ := mc["role"].(string)

	return &Claims{UserID: uint(id), Email: email, Role: role}, nil
}
