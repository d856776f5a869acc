package utils

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var ErrInvalidToken = errors.New("invalid auth token")

type TokenData struct {
	Sub string
}

// TokenParser validates HMAC-signed bearer tokens on guarded routes.
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	return &TokenParser{secret: []byte(secret)}
}

// ParseTokenDataCtx extracts and verifies the bearer token from the
// request's Authorization header.
func (p *TokenParser) ParseTokenDataCtx(c echo.Context) (*TokenData, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return nil, ErrInvalidToken
	}
	return p.parse(raw)
}

func (p *TokenParser) parse(raw string) (*TokenData, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &TokenData{Sub: sub}, nil
}
