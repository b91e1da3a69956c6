package auth

import (
	"errors"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeAccess = "access"

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
)

type Claims struct {
	UserID       string            `json:"sub"`
	Identifier   string            `json:"idf"`
	Name         string            `json:"name,omitempty"`
	Role         user.Role         `json:"role"`
	Capabilities user.Capabilities `json:"caps"`
	TokenType    string            `json:"typ"`
	JTI          string            `json:"jti"`
	jwt.RegisteredClaims
}

// Principal rebuilds the authenticated identity carried by the token.
func (c *Claims) Principal() user.Principal {
	p := user.Principal{
		UserID:       c.UserID,
		Identifier:   c.Identifier,
		Name:         c.Name,
		Role:         c.Role,
		Capabilities: c.Capabilities,
	}
	if c.IssuedAt != nil {
		p.AuthenticatedAt = c.IssuedAt.Time
	}
	return p
}

type Manager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewManager(secret string, accessTTL time.Duration) *Manager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Manager{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

func (m *Manager) GenerateAccessToken(p user.Principal) (token string, expiresAt time.Time, err error) {
	now := m.now().UTC()
	expiresAt = now.Add(m.accessTTL)

	subject := p.UserID
	if subject == "" {
		subject = p.Identifier
	}

	claims := Claims{
		UserID:       subject,
		Identifier:   p.Identifier,
		Name:         p.Name,
		Role:         p.Role,
		Capabilities: p.Capabilities,
		TokenType:    tokenTypeAccess,
		JTI:          uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   subject,
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	return
}

func (m *Manager) ParseAndValidate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	claims, err := m.ParseAndValidate(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}
