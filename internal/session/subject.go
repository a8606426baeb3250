package session

import "github.com/golang-jwt/jwt/v5"

// DeriveSubject extracts the sub claim from a bearer token for display. The
// token is parsed, never verified; validity is the server's concern. Any
// structural failure (wrong segment count, bad base64url, bad JSON, missing
// or non-string sub) yields "" rather than an error, since this is a
// best-effort label only.
func DeriveSubject(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
