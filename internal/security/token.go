package security

import (
	"crypto/rsa"
	"os"
	"time"

	"github.com/cwrk-planet/presence-service/internal/errs"

	"github.com/golang-jwt/jwt"
)

// Identity — результат аутентификации bearer-токена.
type Identity struct {
	UserID string
	Staff  bool
}

type AccessClaims struct {
	jwt.StandardClaims
	Staff bool `json:"staff,omitempty"`
}

// Verifier проверяет access-токены, выпущенные auth-service (RS256).
type Verifier struct {
	public    *rsa.PublicKey
	issuer    string
	audience  string
	clockSkew time.Duration
}

func NewVerifier(public *rsa.PublicKey, issuer, audience string, clockSkew time.Duration) *Verifier {
	return &Verifier{
		public:    public,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}
}

func (v *Verifier) Authenticate(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, errs.ErrInvalidToken
	}

	claims := &AccessClaims{}
	// временные клеймы проверяем сами, с допуском clockSkew
	parser := jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok || t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, errs.ErrInvalidToken
		}
		return v.public, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, errs.ErrInvalidToken
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Identity{}, errs.ErrInvalidIssuer
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return Identity{}, errs.ErrInvalidAudience
	}

	now := time.Now()
	nbf := time.Unix(claims.NotBefore, 0).Add(-v.clockSkew)
	exp := time.Unix(claims.ExpiresAt, 0).Add(v.clockSkew)
	if now.Before(nbf) || now.After(exp) {
		return Identity{}, errs.ErrTokenExpired
	}

	if claims.Subject == "" {
		return Identity{}, errs.ErrInvalidSubject
	}

	return Identity{UserID: claims.Subject, Staff: claims.Staff}, nil
}

func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(b)
}
