package user

import "strings"

// NormalizeEmail trims surrounding space and lowercases the domain part.
// The local part is case-sensitive per RFC 5321 and kept as written.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

// LocalPart returns the substring before the first '@'.
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
