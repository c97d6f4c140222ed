package sdk

import "github.com/ChiaYuChang/sharpai/pkgs/utils"

const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderRequestID     = "X-Request-Id"
	MIMEApplicationJSON = "application/json"
)

// BasicAuthHeader returns "Basic " followed by the base64 encoding of
// "email:password".
func BasicAuthHeader(email, password string) string {
	return "Basic " + utils.EncodeBase64(email+":"+password)
}

func BearerAuthHeader(token string) string {
	return "Bearer " + token
}
