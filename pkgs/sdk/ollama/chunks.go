package ollama

import (
	"encoding/json"
	"strings"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/invopop/jsonschema"
	"github.com/ollama/ollama/api"
)

func parseChunk[T any](token string) (*T, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}

	chunk := new(T)
	if err := json.Unmarshal([]byte(token), chunk); err != nil {
		return nil, false
	}
	return chunk, true
}

// ParseGenerateChunk decodes one NDJSON line streamed by api/generate.
func ParseGenerateChunk(token string) (*api.GenerateResponse, bool) {
	return parseChunk[api.GenerateResponse](token)
}

// ParseChatChunk decodes one NDJSON line streamed by api/chat.
func ParseChatChunk(token string) (*api.ChatResponse, bool) {
	return parseChunk[api.ChatResponse](token)
}

// ParseProgressChunk decodes one NDJSON line streamed by api/pull.
func ParseProgressChunk(token string) (*api.ProgressResponse, bool) {
	return parseChunk[api.ProgressResponse](token)
}

// Format returns the JSON schema of v, ready for the "format" field of a
// generate or chat request.
func Format(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, errors.ArgumentNull("format")
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.ErrMarshalFailed.Clone().Warp(err)
	}
	return data, nil
}
