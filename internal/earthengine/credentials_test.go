package earthengine

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServiceAccountKey(t *testing.T, tokenURI string) ([]byte, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "water-project",
		"private_key_id": "kid-1",
		"private_key":    string(keyPEM),
		"client_email":   "svc@water-project.iam.gserviceaccount.com",
		"token_uri":      tokenURI,
	})
	require.NoError(t, err)
	return data, key
}

func TestServiceAccountTokenExchange(t *testing.T) {
	var calls atomic.Int32
	var key *rsa.PrivateKey

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, jwtBearerGrant, r.Form.Get("grant_type"))

		claims := jwt.MapClaims{}
		tok, err := jwt.ParseWithClaims(r.Form.Get("assertion"), claims, func(tok *jwt.Token) (interface{}, error) {
			return &key.PublicKey, nil
		})
		require.NoError(t, err)
		assert.True(t, tok.Valid)
		assert.Equal(t, "kid-1", tok.Header["kid"])
		assert.Equal(t, "svc@water-project.iam.gserviceaccount.com", claims["iss"])
		assert.Contains(t, claims["scope"], "earthengine")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.test","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	data, k := testServiceAccountKey(t, srv.URL)
	key = k

	sa, err := ParseServiceAccount(data, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "water-project", sa.ProjectID())

	ctx := context.Background()
	tok, err := sa.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.test", tok)

	// cached
	_, err = sa.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// expired
	sa.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = sa.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestServiceAccountTokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid JWT Signature."}`))
	}))
	defer srv.Close()

	data, _ := testServiceAccountKey(t, srv.URL)
	sa, err := ParseServiceAccount(data, srv.Client())
	require.NoError(t, err)

	_, err = sa.Token(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid JWT Signature.", apiErr.Message)
}

func TestParseServiceAccountRejectsBadKeys(t *testing.T) {
	_, err := ParseServiceAccount([]byte(`{"type":"authorized_user"}`), nil)
	assert.Error(t, err)

	_, err = ParseServiceAccount([]byte(`{"client_email":"a@b","private_key":"not pem"}`), nil)
	assert.Error(t, err)

	_, err = ParseServiceAccount([]byte(`{`), nil)
	assert.Error(t, err)
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticToken("").Token(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}
