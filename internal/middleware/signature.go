package middleware

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"crevid/internal/domain"
	"crevid/internal/infra"
)

// SignatureSettings supplies the queue signing keys at request time so key
// rotation through the settings API takes effect immediately.
type SignatureSettings interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
}

// VerifySignature authenticates queue callback deliveries. The queue signs
// "{timestamp}.{body}" with HMAC-SHA256 and sends "v1={base64}" in the
// signature header; both the current and the next signing key are accepted so
// rotation never drops deliveries. Verification is skipped in development.
func VerifySignature(settings SignatureSettings, appEnv string, logger infra.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if appEnv == "development" {
				next.ServeHTTP(w, r)
				return
			}

			signature := r.Header.Get("Upstash-Signature")
			timestamp := r.Header.Get("Upstash-Timestamp")
			if signature == "" || timestamp == "" {
				reject(w, "missing delivery signature")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				reject(w, "unreadable body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			row, err := settings.Get(r.Context())
			if err != nil {
				logger.Error().Err(err).Msg("signature check: settings unavailable")
				reject(w, "verification unavailable")
				return
			}

			keys := make([]string, 0, 2)
			for _, k := range []string{row.QStashCurrentSigningKey, row.QStashNextSigningKey} {
				if strings.TrimSpace(k) != "" {
					keys = append(keys, k)
				}
			}
			if len(keys) == 0 {
				logger.Error().Msg("signature check: no signing keys configured")
				reject(w, "verification unavailable")
				return
			}

			for _, key := range keys {
				if verify(key, timestamp, body, signature) {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn().Str("path", r.URL.Path).Msg("rejected delivery with bad signature")
			reject(w, "invalid delivery signature")
		})
	}
}

func verify(key, timestamp string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := "v1=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func reject(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
