package middleware

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"crevid/internal/domain"
)

type sigSettings struct {
	current string
	next    string
}

func (s *sigSettings) Get(ctx context.Context) (*domain.AppSettings, error) {
	return domain.DefaultSettings("", "", "", s.current, s.next), nil
}

func sign(key, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return "v1=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signedRequest(body []byte, signature, timestamp string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/workers/content-generation", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("Upstash-Signature", signature)
	}
	if timestamp != "" {
		req.Header.Set("Upstash-Timestamp", timestamp)
	}
	return req
}

func runVerify(t *testing.T, settings SignatureSettings, appEnv string, req *http.Request) (*httptest.ResponseRecorder, []byte) {
	t.Helper()
	var seenBody []byte
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	VerifySignature(settings, appEnv, zerolog.New(io.Discard))(inner).ServeHTTP(rec, req)
	return rec, seenBody
}

func TestVerifySignatureAcceptsCurrentKey(t *testing.T) {
	body := []byte(`{"job_id":"j1"}`)
	sig := sign("current-key", "1700000000", body)

	rec, seenBody := runVerify(t, &sigSettings{current: "current-key", next: "next-key"}, "production",
		signedRequest(body, sig, "1700000000"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, body, seenBody, "body must be restored for the handler")
}

func TestVerifySignatureAcceptsNextKeyDuringRotation(t *testing.T) {
	body := []byte(`{"job_id":"j1"}`)
	sig := sign("next-key", "1700000000", body)

	rec, _ := runVerify(t, &sigSettings{current: "current-key", next: "next-key"}, "production",
		signedRequest(body, sig, "1700000000"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifySignatureRejectsBadSignature(t *testing.T) {
	body := []byte(`{"job_id":"j1"}`)
	sig := sign("some-other-key", "1700000000", body)

	rec, _ := runVerify(t, &sigSettings{current: "current-key"}, "production",
		signedRequest(body, sig, "1700000000"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	sig := sign("current-key", "1700000000", []byte(`{"job_id":"j1"}`))

	rec, _ := runVerify(t, &sigSettings{current: "current-key"}, "production",
		signedRequest([]byte(`{"job_id":"j2"}`), sig, "1700000000"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifySignatureRejectsMissingHeaders(t *testing.T) {
	rec, _ := runVerify(t, &sigSettings{current: "current-key"}, "production",
		signedRequest([]byte(`{}`), "", ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifySignatureRejectsWhenNoKeysConfigured(t *testing.T) {
	body := []byte(`{}`)
	rec, _ := runVerify(t, &sigSettings{}, "production",
		signedRequest(body, sign("k", "1", body), "1"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifySignatureSkippedInDevelopment(t *testing.T) {
	rec, _ := runVerify(t, &sigSettings{}, "development",
		signedRequest([]byte(`{}`), "", ""))
	require.Equal(t, http.StatusOK, rec.Code)
}
