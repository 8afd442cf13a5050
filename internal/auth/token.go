package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
)

var (
	// ErrInvalidToken is returned when the token is malformed or badly signed
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when the token audience is invalid
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims are the JWT claims of an API token
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	Role      string `json:"role,omitempty"`
}

// ParsedClaims are validated claims with typed fields
type ParsedClaims struct {
	Subject   string
	Email     string
	CompanyID uuid.UUID // uuid.Nil when the token carries no company
	Role      models.UserRole
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config holds the shared settings of Validator and Issuer
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	Leeway   time.Duration
}

// Validator validates HS256 tokens
type Validator struct {
	secret []byte
	parser *jwt.Parser
}

// NewValidator creates a Validator. Issuer and audience are enforced when set.
func NewValidator(cfg Config) *Validator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	return &Validator{
		secret: cfg.Secret,
		parser: jwt.NewParser(opts...),
	}
}

// ValidateToken validates a token and returns its parsed claims
func (v *Validator) ValidateToken(_ context.Context, tokenString string) (*ParsedClaims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, fmt.Errorf("%w: %v", ErrInvalidIssuer, err)
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, fmt.Errorf("%w: %v", ErrInvalidAudience, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return parseClaims(claims)
}

// parseClaims converts Claims to ParsedClaims with proper type conversions
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	parsed := &ParsedClaims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    models.UserRole(claims.Role),
	}
	if claims.CompanyID != "" {
		companyID, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("%w: company_id is not a UUID", ErrInvalidToken)
		}
		parsed.CompanyID = companyID
	}
	if parsed.Role != "" && !parsed.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}
	return parsed, nil
}

// Issuer signs tokens for users
type Issuer struct {
	cfg   Config
	clock func() time.Time
}

// NewIssuer creates an Issuer. A zero TTL defaults to one hour.
func NewIssuer(cfg Config) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Issuer{cfg: cfg, clock: time.Now}
}

// Issue signs a token for the user and returns it with its expiry
func (i *Issuer) Issue(user *models.User) (string, time.Time, error) {
	now := i.clock()
	expires := now.Add(i.cfg.TTL)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   user.Subject,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Email:     user.Email,
		CompanyID: user.CompanyID.String(),
		Role:      string(user.Role),
	}
	if i.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}
