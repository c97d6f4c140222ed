package stream

import "github.com/tidwall/gjson"

// ExtractToken parses fragment as JSON and returns its "token" field.
// ok is false when the fragment is not valid JSON, is not an object, or the
// field is missing, null or empty. Partial fragments are expected while
// streaming, so malformed input is never an error.
func ExtractToken(fragment string) (token string, ok bool) {
	if !gjson.Valid(fragment) {
		return "", false
	}

	doc := gjson.Parse(fragment)
	if !doc.IsObject() {
		return "", false
	}

	field := doc.Get("token")
	if !field.Exists() || field.Type == gjson.Null {
		return "", false
	}

	token = field.String()
	return token, token != ""
}
