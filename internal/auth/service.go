// Package auth signs users in and keeps the persisted token state consistent with the
// token's claims.
package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"algocrack/internal/client/state"
	"algocrack/internal/client/transport"
	"algocrack/internal/submission/model"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Auth routes.
const (
	SignInPath = "/api/v1/auth/signin"
	OAuthPath  = "/api/v1/auth/oauth2/authorization/google"
)

// DefaultRole is assumed when a token carries no role claim.
const DefaultRole = "USER"

// Requester is the transport surface used for sign-in.
type Requester interface {
	Request(ctx context.Context, method, path string, in, out interface{}, opts ...transport.Option) (transport.ResponseInfo, error)
}

// TokenStore persists the signed-in session.
type TokenStore interface {
	State() state.TokenState
	Set(st state.TokenState) error
	Clear() error
}

// Credentials are the email/password pair sent to sign in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResponse is the sign-in reply.
type SignInResponse struct {
	Token string `json:"token"`
	Type  string `json:"type"`
}

type tokenClaims struct {
	UserID model.ID `json:"userId"`
	Role   string   `json:"role"`
	jwt.RegisteredClaims
}

// Service signs users in and out.
type Service struct {
	http   Requester
	tokens TokenStore
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(http Requester, tokens TokenStore, opts ...Option) *Service {
	s := &Service{http: http, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn exchanges credentials for a token and persists the decoded session.
func (s *Service) SignIn(ctx context.Context, creds Credentials) (state.TokenState, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" {
		return state.TokenState{}, pkgerrors.ValidationError("email", "required")
	}
	if creds.Password == "" {
		return state.TokenState{}, pkgerrors.ValidationError("password", "required")
	}

	var resp SignInResponse
	if _, err := s.http.Request(ctx, http.MethodPost, SignInPath, creds, &resp, transport.WithSkipAuth()); err != nil {
		if pkgerrors.Is(err, pkgerrors.Unauthorized) {
			return state.TokenState{}, pkgerrors.Wrap(err, pkgerrors.InvalidCredentials).WithMessage(pkgerrors.InvalidCredentials.Message())
		}
		return state.TokenState{}, err
	}
	if resp.Token == "" {
		return state.TokenState{}, pkgerrors.Newf(pkgerrors.InvalidCredentials, "Login failed: No token received")
	}
	st, err := s.Accept(resp.Token)
	if err != nil {
		return state.TokenState{}, err
	}
	if resp.Type != "" {
		st.TokenType = resp.Type
		if err := s.tokens.Set(st); err != nil {
			return state.TokenState{}, pkgerrors.Wrap(err, pkgerrors.SessionStateFailed)
		}
	}
	logger.Info(ctx, "signed in", zap.String("user_id", st.UserID), zap.String("role", st.Role))
	return st, nil
}

// Accept stores a token obtained out of band, such as the OAuth success redirect.
func (s *Service) Accept(token string) (state.TokenState, error) {
	st, err := ParseToken(token)
	if err != nil {
		return state.TokenState{}, err
	}
	if err := s.tokens.Set(st); err != nil {
		return state.TokenState{}, pkgerrors.Wrap(err, pkgerrors.SessionStateFailed)
	}
	return st, nil
}

// Restore validates the stored session. An undecodable or expired token is cleared and
// reported as signed out.
func (s *Service) Restore(ctx context.Context) (state.TokenState, bool) {
	current := s.tokens.State()
	if current.AccessToken == "" {
		return state.TokenState{}, false
	}
	st, err := ParseToken(current.AccessToken)
	if err != nil || st.Expired(s.now()) {
		logger.Info(ctx, "dropping stored token", zap.Bool("expired", err == nil), zap.Error(err))
		if err := s.tokens.Clear(); err != nil {
			logger.Warn(ctx, "clear token failed", zap.Error(err))
		}
		return state.TokenState{}, false
	}
	st.TokenType = current.TokenType
	return st, true
}

// Logout drops the stored session. There is no server-side call.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.tokens.Clear(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.SessionStateFailed)
	}
	logger.Info(ctx, "signed out")
	return nil
}

// ParseToken decodes the token claims without verifying the signature. The user id
// falls back to the subject, and the role defaults to USER.
func ParseToken(raw string) (state.TokenState, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return state.TokenState{}, pkgerrors.Wrap(err, pkgerrors.TokenInvalid).WithMessage(pkgerrors.TokenInvalid.Message())
	}
	st := state.TokenState{
		AccessToken: raw,
		UserID:      claims.UserID.String(),
		Email:       claims.Subject,
		Role:        claims.Role,
	}
	if st.UserID == "" {
		st.UserID = claims.Subject
	}
	if st.Role == "" {
		st.Role = DefaultRole
	}
	if claims.ExpiresAt != nil {
		st.ExpiresAt = claims.ExpiresAt.Time
	}
	if st.UserID == "" {
		return state.TokenState{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return st, nil
}

// OAuthURL builds the Google authorization URL. The provider redirects to redirectURI
// with "next" appended, where the token is expected as a query parameter.
func OAuthURL(gatewayURL, redirectURI, next string) (string, error) {
	if next == "" {
		next = "/"
	}
	redirect, err := url.Parse(redirectURI)
	if err != nil || redirect.Scheme == "" {
		return "", pkgerrors.ValidationError("redirect_uri", "must be an absolute url")
	}
	q := redirect.Query()
	q.Set("next", next)
	redirect.RawQuery = q.Encode()

	target := strings.TrimRight(gatewayURL, "/") + OAuthPath + "?" + url.Values{"redirect_uri": {redirect.String()}}.Encode()
	return target, nil
}
