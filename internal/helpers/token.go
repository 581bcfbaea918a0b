package helpers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"figures/internal/configuration"
	"figures/internal/models"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenConfig holds configuration for creating a specific token type.
type tokenConfig struct {
	audience      string
	expiryMinutes int
}

// createToken is the common token creation path for operator and host user tokens.
func createToken(jwtSecret string, claims models.UserClaims, config tokenConfig) (string, error) {
	now := time.Now()
	claims.Aud = config.audience
	claims.Issuer = configuration.AppName
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  &jwt.NumericDate{Time: now},
		ExpiresAt: &jwt.NumericDate{Time: now.Add(time.Minute * time.Duration(config.expiryMinutes))},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ParseToken parses and validates a JWT token without audience validation.
// It validates signature, expiry, and issuer only.
// Audience validation is delegated to the AudienceValidate middleware for route-specific rules.
// The requireBearer parameter controls whether the "Bearer " prefix is required.
func ParseToken(jwtSecret string, tokenString string, requireBearer bool) (models.UserClaims, error) {
	if requireBearer {
		if !strings.HasPrefix(tokenString, "Bearer ") {
			return models.UserClaims{}, errors.New("invalid token")
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}

	claims := &models.UserClaims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		},
	)
	if err != nil {
		return models.UserClaims{}, errors.New("invalid token")
	}

	if claims.Issuer != configuration.AppName {
		return models.UserClaims{}, errors.New("invalid token issuer")
	}

	return *claims, nil
}

// ParseAccessToken parses an Authorization header value.
func ParseAccessToken(jwtSecret string, header string) (models.UserClaims, error) {
	return ParseToken(jwtSecret, header, true)
}

func CreateHash(password string) (string, error) {
	argonParams := argon2id.Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  32,
		KeyLength:   32,
	}
	hash, err := argon2id.CreateHash(password, &argonParams)
	if err != nil {
		return "", errors.New("can not create hash password")
	}

	return hash, nil
}

func NewAccessToken(jwtSecret string, operator *models.Operator, expiryMinutes int) (string, error) {
	claims := models.UserClaims{
		Email:      operator.Email,
		OperatorID: operator.ID,
		Role:       operator.Role,
	}
	if operator.HostUserID != nil {
		claims.HostUserID = *operator.HostUserID
	}
	return createToken(jwtSecret, claims, tokenConfig{
		audience:      configuration.AudienceAccessToken,
		expiryMinutes: expiryMinutes,
	})
}

// NewHostUserToken mints a token for a host platform user. Global staff get
// the admin role, everybody else is scoped to the courses they administer.
func NewHostUserToken(
	jwtSecret string,
	user *models.User,
	audience string,
	expiryMinutes int,
) (string, error) {
	role := models.RoleStaff
	if user.IsGlobalStaff() {
		role = models.RoleAdmin
	}
	return createToken(jwtSecret, models.UserClaims{
		Email:      user.Email,
		OperatorID: uuid.Nil,
		HostUserID: user.ID,
		Role:       role,
	}, tokenConfig{
		audience:      audience,
		expiryMinutes: expiryMinutes,
	})
}

func GetUserClaims(c context.Context) (models.UserClaims, error) {
	value, ok := c.Value(models.UserClaimKey{}).(models.UserClaims)
	if !ok {
		return models.UserClaims{}, errors.New("invalid user claims")
	}
	return value, nil
}

// GenerateState returns an unguessable value for the OpenID Connect state and
// nonce parameters.
func GenerateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
