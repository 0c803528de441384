package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func signWebhook(t *testing.T, secret, ts, body string) string {
	t.Helper()
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(ts + body))
	return base64.StdEncoding.EncodeToString(m.Sum(nil))
}
