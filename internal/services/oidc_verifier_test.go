package services

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeGoogle struct {
	srv *httptest.Server
	key *rsa.PrivateKey
	kid string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	fg := &fakeGoogle{key: key, kid: "kid-1"}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   "https://accounts.google.com",
			"jwks_uri": fg.srv.URL + "/certs",
		})
	})
	mux.HandleFunc("/certs", func(w http.ResponseWriter, r *http.Request) {
		pub := fg.key.PublicKey
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": fg.kid,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	})
	fg.srv = httptest.NewServer(mux)
	t.Cleanup(fg.srv.Close)
	return fg
}

func (fg *fakeGoogle) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = fg.kid
	s, err := tok.SignedString(fg.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func baseClaims(aud string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            aud,
		"sub":            "1234567890",
		"email":          "ada@example.com",
		"email_verified": true,
		"given_name":     "Ada",
		"family_name":    "Lovelace",
		"picture":        "https://img/ada",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func TestVerifyGoogleIDToken(t *testing.T) {
	fg := newFakeGoogle(t)
	v, err := newOIDCVerifierWithDiscovery(fg.srv.Client(), "client-1", fg.srv.URL+"/.well-known/openid-configuration")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	ident, err := v.VerifyGoogleIDToken(t.Context(), fg.sign(t, baseClaims("client-1")))
	if err != nil {
		t.Fatalf("VerifyGoogleIDToken: %v", err)
	}
	if ident.Sub != "1234567890" || ident.Name != "Ada Lovelace" || !ident.EmailVerified || ident.Picture != "https://img/ada" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestVerifyGoogleIDTokenRejects(t *testing.T) {
	fg := newFakeGoogle(t)
	v, _ := newOIDCVerifierWithDiscovery(fg.srv.Client(), "client-1", fg.srv.URL+"/.well-known/openid-configuration")

	wrongAud := baseClaims("someone-else")
	expired := baseClaims("client-1")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	badIssuer := baseClaims("client-1")
	badIssuer["iss"] = "https://evil.example.com"

	cases := map[string]string{
		"audience": fg.sign(t, wrongAud),
		"expired":  fg.sign(t, expired),
		"issuer":   fg.sign(t, badIssuer),
		"garbage":  "a.b.c",
	}
	for name, token := range cases {
		if _, err := v.VerifyGoogleIDToken(t.Context(), token); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims("client-1"))
	hs.Header["kid"] = fg.kid
	signed, _ := hs.SignedString([]byte("secret"))
	if _, err := v.VerifyGoogleIDToken(t.Context(), signed); err == nil || !strings.Contains(err.Error(), "invalid id_token") {
		t.Fatalf("HS256 token must be rejected, got %v", err)
	}
}
