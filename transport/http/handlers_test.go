package http

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/adapters/keyset"
	"github.com/layer-3/garuda/adapters/signing"
	"github.com/layer-3/garuda/internal/eth"
	"github.com/layer-3/garuda/service"
)

const (
	testIssuer  = "https://id.example.com"
	testSubject = "user-1"
	testKeyID   = "k1"
)

// newTestServer wires the signing surface only: a local signing backend and
// a real session issuer. Payment and verification need a chain and are
// covered at the service layer.
func newTestServer(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	accountKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := signing.NewLocalSigner(accountKey, []string{testSubject})

	issuerKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	keys := keyset.NewStaticKeySet(map[string]interface{}{testKeyID: &issuerKey.PublicKey})

	account := service.NewAccount(signer.Account(), signer, zerolog.Nop())
	issuer := service.NewSessionIssuer(signer, keys, testIssuer, "", zerolog.Nop())
	wallet := service.NewWalletService(account, issuer, nil, nil, nil)

	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Subject:   testSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(30 * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = testKeyID
	identityToken, err := token.SignedString(issuerKey)
	require.NoError(t, err)

	return SetupRouter(wallet), identityToken
}

func TestAddressEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/address", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Address   string `json:"address"`
		PublicKey string `json:"public_key"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Address)
	assert.NotEmpty(t, body.PublicKey)
}

func TestSignMessageEndpoint(t *testing.T) {
	router, identityToken := newTestServer(t)

	payload, _ := json.Marshal(map[string]string{"message": "login challenge"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/sign-message", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+identityToken)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Signature string `json:"signature"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	sig, err := hexutil.Decode(body.Signature)
	require.NoError(t, err)
	assert.Len(t, sig, eth.SignatureLength)
}

func TestSignMessageRequiresBearerToken(t *testing.T) {
	router, _ := newTestServer(t)

	payload, _ := json.Marshal(map[string]string{"message": "x"})

	for _, header := range []string{"", "Token abc", "Bearer "} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/sign-message", bytes.NewReader(payload))
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestSignMessageRejectsInvalidIdentityToken(t *testing.T) {
	router, _ := newTestServer(t)

	payload, _ := json.Marshal(map[string]string{"message": "x"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/sign-message", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignMessageRejectsBadBody(t *testing.T) {
	router, identityToken := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/sign-message", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer "+identityToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayRejectsBadRequests(t *testing.T) {
	router, identityToken := newTestServer(t)

	cases := []map[string]string{
		{},
		{"token": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "to": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "amount": "-5"},
		{"token": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "to": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "amount": "abc"},
		{"token": "not-an-address", "to": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "amount": "100"},
	}
	for i, body := range cases {
		payload, _ := json.Marshal(body)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/pay", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+identityToken)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "case %d", i)
	}
}

func TestVerifyRejectsBadRequests(t *testing.T) {
	router, _ := newTestServer(t)

	cases := []map[string]string{
		{},
		{"tx_hash": "0x01", "expected_amount": "0", "expected_payer": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
		{"tx_hash": "0x01", "expected_amount": "100", "expected_payer": "nope"},
		{"tx_hash": "0x01", "expected_amount": "100", "expected_payer": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "expected_recipient": "nope"},
	}
	for i, body := range cases {
		payload, _ := json.Marshal(body)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/verify", bytes.NewReader(payload))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "case %d", i)
	}
}
