package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/ilcreatore32/salelink"
)

// Claims carries the acting user. Subject holds the numeric user id.
type Claims struct {
	Login        string   `json:"login,omitempty"`
	Capabilities []string `json:"caps,omitempty"`
	jwt.StandardClaims
}

// Authenticator verifies HS256 bearer tokens issued by the host application.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates an Authenticator for secret. An empty issuer is not checked.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// IssueToken signs a token for p valid for ttl.
func (a *Authenticator) IssueToken(p salelink.Principal, ttl time.Duration) (string, error) {
	caps := make([]string, len(p.Capabilities))
	for i, c := range p.Capabilities {
		caps[i] = string(c)
	}
	claims := &Claims{
		Login:        p.Login,
		Capabilities: caps,
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			Issuer:    a.issuer,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Principal parses and verifies a raw token.
func (a *Authenticator) Principal(raw string) (salelink.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return salelink.Principal{}, err
	}
	if !token.Valid {
		return salelink.Principal{}, errors.New("invalid token")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return salelink.Principal{}, errors.New("unexpected token issuer")
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return salelink.Principal{}, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	caps := make([]salelink.Capability, len(claims.Capabilities))
	for i, c := range claims.Capabilities {
		caps[i] = salelink.Capability(c)
	}
	return salelink.Principal{ID: id, Login: claims.Login, Capabilities: caps, Active: true}, nil
}

type principalKey struct{}

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if header == "" || raw == header {
			respond(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}
		p, err := a.Principal(raw)
		if err != nil {
			respond(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

// PrincipalFrom returns the principal stored by Middleware.
func PrincipalFrom(ctx context.Context) (salelink.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(salelink.Principal)
	return p, ok
}
