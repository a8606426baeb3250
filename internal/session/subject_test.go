package session

import (
	"encoding/base64"
	"testing"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func token(header, payload string) string {
	return b64(header) + "." + b64(payload) + "." + b64("sig")
}

const stdHeader = `{"alg":"HS256","typ":"JWT"}`

func TestDeriveSubject(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{
			name:  "valid token",
			token: token(stdHeader, `{"sub":"alice@example.com","exp":1893456000}`),
			want:  "alice@example.com",
		},
		{
			name:  "empty token",
			token: "",
			want:  "",
		},
		{
			name:  "opaque token",
			token: "not-a-jwt",
			want:  "",
		},
		{
			name:  "two segments",
			token: b64(stdHeader) + "." + b64(`{"sub":"x"}`),
			want:  "",
		},
		{
			name:  "four segments",
			token: token(stdHeader, `{"sub":"x"}`) + ".extra",
			want:  "",
		},
		{
			name:  "invalid payload encoding",
			token: b64(stdHeader) + ".!!!not-base64!!!." + b64("sig"),
			want:  "",
		},
		{
			name:  "payload not json",
			token: token(stdHeader, "just some text"),
			want:  "",
		},
		{
			name:  "missing sub",
			token: token(stdHeader, `{"exp":1893456000}`),
			want:  "",
		},
		{
			name:  "non-string sub",
			token: token(stdHeader, `{"sub":42}`),
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveSubject(tt.token); got != tt.want {
				t.Errorf("DeriveSubject() = %q, want %q", got, tt.want)
			}
		})
	}
}
