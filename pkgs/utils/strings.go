package utils

import (
	"encoding/base64"
	"strings"
)

// EnsureSuffix appends suffix to s unless s already ends with it.
func EnsureSuffix(s, suffix string) string {
	if strings.HasSuffix(s, suffix) {
		return s
	}
	return s + suffix
}

// EncodeBase64 encodes the UTF-8 bytes of s with the standard alphabet.
func EncodeBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func Mask(pwd string) string {
	if len(pwd) <= 10 {
		return strings.Repeat("●", len(pwd))
	}
	return pwd[:5] + strings.Repeat("●", min(len(pwd)-10, 10)) + pwd[len(pwd)-5:]
}
