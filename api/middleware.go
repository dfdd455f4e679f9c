package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/custody-ledger-api/config"
	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/models"
)

// Headers a demonstration-mode client uses to claim a role and name itself
const (
	RoleHeader  = "X-Custody-Role"
	ActorHeader = "X-Custody-Actor"
)

type account struct {
	hash []byte
	role custody.Role
}

type roleClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth resolves the role a request acts as. With auth enabled the role
// comes from a signed token; otherwise the client's claimed role is
// trusted.
type Auth struct {
	enabled       bool
	secret        []byte
	ttl           time.Duration
	accounts      map[string]account
	authenticator auth.Authenticator
	now           func() time.Time
}

// NewAuth builds the authenticator from the configured accounts
func NewAuth(conf *config.Config) *Auth {
	a := &Auth{
		enabled:  conf.AuthEnabled,
		secret:   []byte(conf.JWTSecret),
		ttl:      conf.TokenTTL,
		accounts: map[string]account{},
		now:      time.Now,
	}
	if a.ttl <= 0 {
		a.ttl = 12 * time.Hour
	}
	if conf.PolicePasswordHash != "" {
		a.accounts["police"] = account{hash: []byte(conf.PolicePasswordHash), role: custody.RolePolice}
	}
	if conf.LawyerPasswordHash != "" {
		a.accounts["lawyer"] = account{hash: []byte(conf.LawyerPasswordHash), role: custody.RoleLawyerNGO}
	}

	a.authenticator = auth.New()
	cache := store.NewFIFO(context.Background(), 10*time.Minute)
	a.authenticator.EnableStrategy(basic.StrategyKey, basic.New(a.ValidateUser, cache))

	if !a.enabled {
		zap.S().Warnw("AUTH_ENABLED is false: client-claimed roles are trusted",
			"header", RoleHeader,
		)
	} else if len(a.secret) == 0 {
		zap.S().Errorw("AUTH_ENABLED is true but JWT_SECRET is empty, every token will be rejected")
	}
	return a
}

// Enabled reports whether tokens are required for non-public roles
func (a *Auth) Enabled() bool {
	return a.enabled
}

// ValidateUser checks a basic auth username and password against the accounts
func (a *Auth) ValidateUser(ctx context.Context, r *http.Request, username, password string) (auth.Info, error) {
	acct, ok := a.accounts[strings.ToLower(username)]
	if !ok {
		return nil, fmt.Errorf("unknown account %q", username)
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid password for %q", username)
	}
	return auth.NewDefaultUser(strings.ToLower(username), strings.ToLower(username), []string{string(acct.role)}, nil), nil
}

// CreateToken exchanges basic auth credentials for a signed role token
func (a *Auth) CreateToken(w http.ResponseWriter, r *http.Request) {
	if len(a.secret) == 0 {
		config.ErrorStatus("token issuing is not configured", http.StatusServiceUnavailable, w, errors.New("JWT_SECRET is empty"))
		return
	}
	info, err := a.authenticator.Authenticate(r)
	if err != nil {
		authFailuresTotal.WithLabelValues("basic").Inc()
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
		return
	}
	role := custody.RolePublic
	if groups := info.Groups(); len(groups) > 0 {
		role = custody.Role(groups[0])
	}

	token, expires, err := a.sign(info.UserName(), role)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.TokenResponse{
		Token:     token,
		Role:      string(role),
		ExpiresAt: expires,
	})
}

func (a *Auth) sign(subject string, role custody.Role) (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := roleClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	return token, expires, err
}

func (a *Auth) verify(raw string) (Identity, error) {
	claims := &roleClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return Identity{}, err
	}
	role, err := custody.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Role: role, Actor: claims.Subject}, nil
}

// Middleware stores the request's Identity in its context. Anonymous
// requests are PUBLIC.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.identify(r)
		if err != nil {
			authFailuresTotal.WithLabelValues("identify").Inc()
			zap.S().Errorw("unauthorized",
				"url", r.URL,
				"error", err,
			)
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (a *Auth) identify(r *http.Request) (Identity, error) {
	public := Identity{Role: custody.RolePublic, Actor: string(custody.RolePublic)}

	if a.enabled {
		header := r.Header.Get("Authorization")
		if header == "" {
			return public, nil
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return Identity{}, errors.New("authorization header is not a bearer token")
		}
		return a.verify(strings.TrimSpace(raw))
	}

	claimed := r.Header.Get(RoleHeader)
	if claimed == "" {
		claimed = r.URL.Query().Get("role")
	}
	if claimed == "" {
		return public, nil
	}
	role, err := custody.ParseRole(claimed)
	if err != nil {
		return Identity{}, err
	}
	actor := r.Header.Get(ActorHeader)
	if actor == "" {
		actor = string(role)
	}
	return Identity{Role: role, Actor: actor}, nil
}

// RequirePermission rejects requests whose role lacks p with 403
func RequirePermission(p custody.Permission, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFrom(r.Context())
		if err := id.Role.Authorize(p); err != nil {
			config.ErrorStatus("forbidden", http.StatusForbidden, w, err)
			return
		}
		next(w, r)
	}
}
