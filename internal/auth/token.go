package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/sla-service/internal/domain"
)

// TokenManager validates platform-issued JWT tokens. GenerateToken exists for
// local tooling and tests; production tokens come from the helpdesk platform.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager builds a new manager. An empty issuer disables the issuer check.
func NewTokenManager(secret, issuer string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Claims describes JWT payload.
type Claims struct {
	SubjectID string           `json:"sub"`
	Role      domain.StaffRole `json:"role"`
	SectorID  *string          `json:"sector_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims to the caller identity used by services.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{ID: c.SubjectID, Role: c.Role, SectorID: c.SectorID}
}

// GenerateToken builds and signs a JWT for a staff member.
func (tm *TokenManager) GenerateToken(subjectID string, role domain.StaffRole, sectorID *string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		SubjectID: subjectID,
		Role:      role,
		SectorID:  sectorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.SubjectID == "" {
		return nil, errors.New("token subject missing")
	}
	switch claims.Role {
	case domain.StaffRoleAgent, domain.StaffRoleAdmin, domain.StaffRoleSuperadmin:
	default:
		return nil, errors.New("unknown staff role")
	}
	return claims, nil
}
