package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	token, err := issuer.Issue(userID)
	require.NoError(t, err)

	got, err := issuer.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenRejections(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("another-secret-of-thirty-two-bytes!", time.Hour)
	require.NoError(t, err)
	expired, err := NewTokenIssuer(testSecret, -time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue(uuid.New())
	require.NoError(t, err)
	stale, err := expired.Issue(uuid.New())
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"expired":      stale,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestTokenIssuerRejectsShortSecret(t *testing.T) {
	_, err := NewTokenIssuer("secret", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenIssuer(testSecret[:MinSecretLength-1], time.Hour)
	assert.Error(t, err)

	issuer, err := NewTokenIssuer(testSecret[:MinSecretLength], time.Hour)
	require.NoError(t, err)
	_, err = issuer.Issue(uuid.New())
	assert.NoError(t, err)
}

type stubVerifier struct {
	id  uuid.UUID
	err error
}

func (s stubVerifier) Verify(context.Context, string) (uuid.UUID, error) { return s.id, s.err }

func TestVerifiersChain(t *testing.T) {
	id := uuid.New()
	chain := Verifiers{stubVerifier{err: errors.New("nope")}, stubVerifier{id: id}}

	got, err := chain.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = Verifiers{}.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAudienceContains(t *testing.T) {
	assert.True(t, audienceContains(map[string]interface{}{"aud": "web"}, "web"))
	assert.True(t, audienceContains(map[string]interface{}{"aud": []interface{}{"api", "web"}}, "web"))
	assert.False(t, audienceContains(map[string]interface{}{"aud": "api"}, "web"))
	assert.False(t, audienceContains(map[string]interface{}{}, "web"))
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	userID := uuid.New()
	token, err := issuer.Issue(userID)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", RequireUser(issuer), func(c *gin.Context) {
		id, ok := UserID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}
