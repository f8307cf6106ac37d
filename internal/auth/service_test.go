package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"algocrack/internal/auth"
	"algocrack/internal/client/state"
	"algocrack/internal/client/transport"
	"algocrack/internal/testutil"
	pkgerrors "algocrack/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return token
}

func newAuthServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST(auth.SignInPath, func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			c.String(http.StatusBadRequest, "sign-in must not carry a token")
			return
		}
		var creds auth.Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			c.String(http.StatusBadRequest, "bad body")
			return
		}
		if creds.Password != "secret" {
			c.String(http.StatusUnauthorized, "Bad credentials")
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "type": "Bearer"})
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func newService(server *httptest.Server, store *state.TokenStore, opts ...auth.Option) *auth.Service {
	client := transport.New(transport.Config{BaseURL: server.URL, Timeout: time.Second, Tokens: store})
	return auth.NewService(client, store, opts...)
}

func TestSignInStoresClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, jwt.MapClaims{"sub": "ada@example.com", "userId": 42, "role": "ADMIN", "exp": exp.Unix()})
	store := state.NewMemory(state.TokenState{AccessToken: "stale"})
	svc := newService(newAuthServer(t, token), store)

	st, err := svc.SignIn(context.Background(), auth.Credentials{Email: "ada@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	testutil.AssertEqual(t, st.UserID, "42", "user id")
	testutil.AssertEqual(t, st.Email, "ada@example.com", "email")
	testutil.AssertEqual(t, st.Role, "ADMIN", "role")
	testutil.AssertEqual(t, st.TokenType, "Bearer", "token type")
	testutil.AssertTrue(t, st.ExpiresAt.Equal(exp), "expiry")
	testutil.AssertEqual(t, store.Token(), token, "stored token")
}

func TestSignInWrongPassword(t *testing.T) {
	store := state.NewMemory(state.TokenState{})
	svc := newService(newAuthServer(t, "unused"), store)

	_, err := svc.SignIn(context.Background(), auth.Credentials{Email: "ada@example.com", Password: "nope"})
	if !pkgerrors.Is(err, pkgerrors.InvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	testutil.AssertEqual(t, store.Token(), "", "token")
}

func TestSignInValidatesInput(t *testing.T) {
	svc := newService(newAuthServer(t, "unused"), state.NewMemory(state.TokenState{}))
	if _, err := svc.SignIn(context.Background(), auth.Credentials{Password: "secret"}); !pkgerrors.Is(err, pkgerrors.ValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseTokenDefaults(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "7"})
	st, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	testutil.AssertEqual(t, st.UserID, "7", "user id falls back to subject")
	testutil.AssertEqual(t, st.Role, auth.DefaultRole, "role")
	testutil.AssertTrue(t, st.ExpiresAt.IsZero(), "no expiry")

	if _, err := auth.ParseToken("not-a-token"); !pkgerrors.Is(err, pkgerrors.TokenInvalid) {
		t.Fatalf("expected token invalid, got %v", err)
	}
}

func TestRestoreClearsExpiredToken(t *testing.T) {
	now := time.Now()
	expired := signToken(t, jwt.MapClaims{"sub": "a@b.c", "userId": "9", "exp": now.Add(-time.Minute).Unix()})
	store := state.NewMemory(state.TokenState{AccessToken: expired})
	svc := auth.NewService(nil, store, auth.WithClock(func() time.Time { return now }))

	if _, ok := svc.Restore(context.Background()); ok {
		t.Fatalf("expired token must not restore")
	}
	testutil.AssertEqual(t, store.Token(), "", "token cleared")

	valid := signToken(t, jwt.MapClaims{"sub": "a@b.c", "userId": "9", "exp": now.Add(time.Hour).Unix()})
	_ = store.Set(state.TokenState{AccessToken: valid, TokenType: "Bearer"})
	st, ok := svc.Restore(context.Background())
	testutil.AssertTrue(t, ok, "valid token restores")
	testutil.AssertEqual(t, st.UserID, "9", "user id")
	testutil.AssertEqual(t, st.TokenType, "Bearer", "token type")
}

func TestLogoutClearsState(t *testing.T) {
	store := state.NewMemory(state.TokenState{AccessToken: "x"})
	svc := auth.NewService(nil, store)
	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	testutil.AssertEqual(t, store.Token(), "", "token")
}

func TestOAuthURL(t *testing.T) {
	target, err := auth.OAuthURL("http://gw:8080/", "http://localhost:3000/oauth2/success", "/problems/1")
	if err != nil {
		t.Fatalf("oauth url failed: %v", err)
	}
	u, err := url.Parse(target)
	if err != nil {
		t.Fatalf("parse url failed: %v", err)
	}
	testutil.AssertEqual(t, u.Path, auth.OAuthPath, "path")
	testutil.AssertEqual(t, u.Query().Get("redirect_uri"), "http://localhost:3000/oauth2/success?next=%2Fproblems%2F1", "redirect uri")

	if _, err := auth.OAuthURL("http://gw", "relative", ""); !pkgerrors.Is(err, pkgerrors.ValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
