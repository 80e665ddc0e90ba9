package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/account"
)

const (
	contextTokenKey = "accountToken"
	tokenAudience   = "Gradebook"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string       `json:"username,omitempty"`
	Role     account.Role `json:"role,omitempty"`
}

func (c Claims) IsTeacher() bool { return c.Role == account.RoleTeacher }

func (c Claims) identity() core.Identity {
	return core.Identity{ID: c.Subject, Username: c.Username, Role: string(c.Role)}
}

// tokenIssuer signs and checks session tokens with the configured secret.
type tokenIssuer struct {
	key      []byte
	issuer   string
	lifetime time.Duration
}

func newTokenIssuer(conf *core.Config) tokenIssuer {
	return tokenIssuer{
		key:      []byte(conf.SecretKey),
		issuer:   conf.AppName,
		lifetime: conf.Server.JWTExpirationDelta,
	}
}

func (ti tokenIssuer) middlewareConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    ti.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func (ti tokenIssuer) claims(acc account.Account) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.issuer,
			Subject:   acc.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ti.lifetime).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: acc.Username,
		Role:     acc.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func (ti tokenIssuer) GenerateToken(acc account.Account) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), ti.claims(acc))
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// GenerateToken issues a session token for acc, as the API would on login.
func GenerateToken(conf *core.Config, acc account.Account) (string, error) {
	return newTokenIssuer(conf).GenerateToken(acc)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
