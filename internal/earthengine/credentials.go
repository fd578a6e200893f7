package earthengine

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenURI = "https://oauth2.googleapis.com/token"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// DefaultScopes are the OAuth scopes needed for compute and map requests.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/earthengine",
	"https://www.googleapis.com/auth/cloud-platform",
}

var ErrNoCredentials = errors.New("earthengine: no credentials configured")

// TokenSource supplies bearer tokens for the REST API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a pre-issued access token, e.g. from `gcloud auth print-access-token`.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}

type serviceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// ServiceAccount exchanges a signed JWT assertion for an access token and
// caches it until shortly before expiry.
type ServiceAccount struct {
	email      string
	keyID      string
	projectID  string
	key        *rsa.PrivateKey
	tokenURI   string
	scopes     []string
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// LoadServiceAccount reads a Google service-account JSON key file.
func LoadServiceAccount(path string, httpClient *http.Client) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	return ParseServiceAccount(data, httpClient)
}

func ParseServiceAccount(data []byte, httpClient *http.Client) (*ServiceAccount, error) {
	var k serviceAccountKey
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if k.Type != "" && k.Type != "service_account" {
		return nil, fmt.Errorf("parse service account key: unexpected type %q", k.Type)
	}
	if k.ClientEmail == "" || k.PrivateKey == "" {
		return nil, fmt.Errorf("parse service account key: client_email and private_key are required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(k.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	tokenURI := k.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &ServiceAccount{
		email:      k.ClientEmail,
		keyID:      k.PrivateKeyID,
		projectID:  k.ProjectID,
		key:        key,
		tokenURI:   tokenURI,
		scopes:     DefaultScopes,
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

func (s *ServiceAccount) Email() string     { return s.email }
func (s *ServiceAccount) ProjectID() string { return s.projectID }

// Token returns a cached access token or fetches a new one.
func (s *ServiceAccount) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(time.Minute).Before(s.expiry) {
		return s.token, nil
	}

	assertion, err := s.assertion(now)
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Path: s.tokenURI, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	s.token = body.AccessToken
	s.expiry = now.Add(time.Duration(body.ExpiresIn) * time.Second)
	return s.token, nil
}

// assertion is the RS256-signed JWT sent to the token endpoint.
func (s *ServiceAccount) assertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   s.email,
		"scope": strings.Join(s.scopes, " "),
		"aud":   s.tokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}
	return signed, nil
}
