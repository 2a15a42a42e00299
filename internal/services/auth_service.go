package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

// Authenticator exchanges a username/password pair for a session credential.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (domain.SessionCredential, error)
}

func checkCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return domain.ValidationError{Field: "username", Msg: "Please enter both username and password."}
	}
	return nil
}

// BackendAuthenticator signs in against the backend's /auth/login.
type BackendAuthenticator struct {
	Backend Backend
}

type backendLogin struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		UserID      any      `json:"userId"`
		Username    string   `json:"username"`
		Email       string   `json:"email"`
		RoleID      any      `json:"roleId"`
		Token       string   `json:"token"`
		Permissions []string `json:"permissions"`
	} `json:"data"`
}

func (a BackendAuthenticator) Authenticate(ctx context.Context, username, password string) (domain.SessionCredential, error) {
	if err := checkCredentials(username, password); err != nil {
		return domain.SessionCredential{}, err
	}
	resp, err := a.Backend.Do(ctx, http.MethodPost, "/auth/login", nil, "", map[string]string{
		"username": strings.TrimSpace(username),
		"password": password,
	})
	if err != nil {
		return domain.SessionCredential{}, domain.InternalError{Msg: "authentication service unavailable", Err: err}
	}

	var out backendLogin
	decodeErr := json.Unmarshal(resp.Body, &out)
	if resp.OK() && decodeErr == nil && out.Status == "success" && out.Data != nil && out.Data.Token != "" {
		return domain.SessionCredential{
			SubjectID:   domain.IDString(out.Data.UserID),
			DisplayName: out.Data.Username,
			Email:       out.Data.Email,
			RoleID:      domain.IDString(out.Data.RoleID),
			AccessToken: out.Data.Token,
			Permissions: out.Data.Permissions,
		}, nil
	}
	if resp.Status >= 500 {
		return domain.SessionCredential{}, domain.UpstreamError{Status: resp.Status, Msg: out.Message}
	}
	msg := strings.TrimSpace(out.Message)
	if msg == "" {
		msg = "Invalid credentials"
	}
	return domain.SessionCredential{}, domain.UnauthorizedError{Msg: msg}
}

// LocalAuthenticator signs in a single configured administrator against a
// bcrypt hash. The backend still needs a token, so StaticToken is attached.
type LocalAuthenticator struct {
	Username     string
	PasswordHash string
	Permissions  []string
	StaticToken  string
}

func (a LocalAuthenticator) Authenticate(_ context.Context, username, password string) (domain.SessionCredential, error) {
	if err := checkCredentials(username, password); err != nil {
		return domain.SessionCredential{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(username), a.Username) {
		return domain.SessionCredential{}, domain.UnauthorizedError{Msg: "Invalid credentials"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return domain.SessionCredential{}, domain.UnauthorizedError{Msg: "Invalid credentials"}
	}
	return domain.SessionCredential{
		SubjectID:   a.Username,
		DisplayName: a.Username,
		AccessToken: a.StaticToken,
		Permissions: append([]string(nil), a.Permissions...),
	}, nil
}

// HashPassword returns the bcrypt hash used by LOCAL_ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", domain.ValidationError{Field: "password", Msg: "must be at least 8 characters long"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// SessionStore keeps backend access tokens server-side, keyed by session id.
type SessionStore interface {
	Save(ctx context.Context, id, accessToken string, ttl time.Duration) error
	Load(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

// sessionClaims never carry the backend access token; the JWT is only
// signed, so anything in it is readable by whoever holds the cookie.
type sessionClaims struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	RoleID      string   `json:"roleId"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// SessionIssuer turns credentials into signed session tokens and back.
type SessionIssuer struct {
	Secret []byte
	TTL    time.Duration
	Store  SessionStore
	Now    func() time.Time
}

func (s SessionIssuer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue stores the access token under a fresh session id, signs the rest of
// cred with a fixed time-to-live and returns the token and the credential
// with ExpiresAt set.
func (s SessionIssuer) Issue(ctx context.Context, cred domain.SessionCredential) (string, domain.SessionCredential, error) {
	if s.Store == nil {
		return "", domain.SessionCredential{}, errors.New("session store is not configured")
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := s.now()
	cred.ExpiresAt = now.Add(ttl).Truncate(time.Second)
	sid := uuid.NewString()
	if err := s.Store.Save(ctx, sid, cred.AccessToken, cred.ExpiresAt.Sub(now)); err != nil {
		return "", domain.SessionCredential{}, errors.Wrap(err, "store session")
	}
	claims := sessionClaims{
		Name:        cred.DisplayName,
		Email:       cred.Email,
		RoleID:      cred.RoleID,
		Permissions: cred.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Subject:   cred.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(cred.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		_ = s.Store.Delete(ctx, sid)
		return "", domain.SessionCredential{}, errors.Wrap(err, "sign session")
	}
	return token, cred, nil
}

func (s SessionIssuer) verify(token string) (sessionClaims, error) {
	var claims sessionClaims
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, domain.UnauthorizedError{Msg: "Unauthorized request"}
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return claims, domain.UnauthorizedError{Msg: "session is invalid or expired", Err: err}
	}
	if claims.ID == "" {
		return claims, domain.UnauthorizedError{Msg: "session is invalid or expired"}
	}
	return claims, nil
}

// Parse verifies token and restores its credential, access token included.
// Any failure, a revoked session among them, is Unauthorized.
func (s SessionIssuer) Parse(ctx context.Context, token string) (*domain.SessionCredential, error) {
	claims, err := s.verify(token)
	if err != nil {
		return nil, err
	}
	if s.Store == nil {
		return nil, domain.UnauthorizedError{Msg: "session is invalid or expired"}
	}
	accessToken, err := s.Store.Load(ctx, claims.ID)
	if err != nil {
		return nil, domain.UnauthorizedError{Msg: "session is invalid or expired", Err: err}
	}
	cred := &domain.SessionCredential{
		SubjectID:   claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		RoleID:      claims.RoleID,
		AccessToken: accessToken,
		Permissions: claims.Permissions,
	}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}
	return cred, nil
}

// Revoke drops the stored access token so token stops working before it
// expires. Invalid tokens are ignored.
func (s SessionIssuer) Revoke(ctx context.Context, token string) error {
	claims, err := s.verify(token)
	if err != nil || s.Store == nil {
		return nil
	}
	return s.Store.Delete(ctx, claims.ID)
}
