package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultExpiry is used when no token expiry is configured.
const DefaultExpiry = 72 * time.Hour

// Claims is the payload of a session token.
type Claims struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Role      string `json:"role"`

	// Tenant roles and school admins.
	SchoolID     string `json:"schoolId,omitempty"`
	DatabaseName string `json:"databaseName,omitempty"`

	// Teacher
	SubjectNames []string `json:"subjectNames,omitempty"`

	// Student
	ClassID     string `json:"classId,omitempty"`
	ClassName   string `json:"className,omitempty"`
	SectionName string `json:"sectionName,omitempty"`

	// Parent
	StudentIDs []string `json:"studentIds,omitempty"`

	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A ttl of zero or less means DefaultExpiry.
func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultExpiry
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// TTL is the validity window of newly signed tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Sign fills the registered claims and returns the signed token and its expiry.
func (i *Issuer) Sign(c Claims) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	c.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   c.AccountID,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, algorithm, issuer and expiry. Every failure is
// Unauthorized.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierr.Wrap(apierr.Unauthorized, "Session expired. Please sign in again.", err)
		}
		return nil, apierr.Wrap(apierr.Unauthorized, "Invalid session token.", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role == "" || claims.AccountID == "" {
		return nil, apierr.New(apierr.Unauthorized, "Invalid session token.")
	}
	return claims, nil
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", apierr.New(apierr.Unauthorized, "Authorization header is required.")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", apierr.New(apierr.Unauthorized, "Authorization header must use the Bearer scheme.")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apierr.New(apierr.Unauthorized, "Authorization header is required.")
	}
	return token, nil
}

// Authorize returns Forbidden unless the claims' role is one of allowed.
func Authorize(c *Claims, allowed ...string) error {
	if c == nil {
		return apierr.New(apierr.Unauthorized, "")
	}
	for _, role := range allowed {
		if c.Role == role {
			return nil
		}
	}
	return apierr.New(apierr.Forbidden, "")
}
