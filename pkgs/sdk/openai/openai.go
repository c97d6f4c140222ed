// Package openai exposes the OpenAI-compatible endpoints on top of the shared
// request executor. Request and response payloads are the openai-go types.
package openai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk"
	"github.com/ChiaYuChang/sharpai/pkgs/serializer"
	"github.com/ChiaYuChang/sharpai/pkgs/stream"
	oai "github.com/openai/openai-go/v2"
)

const (
	PathCompletions     = "v1/completions"
	PathChatCompletions = "v1/chat/completions"
	PathEmbeddings      = "v1/embeddings"
)

// Client is a stateless facade; all state lives in the executor.
type Client struct {
	executor *sdk.Executor
}

func New(executor *sdk.Executor) *Client {
	return &Client{executor: executor}
}

// GenerateCompletion posts req to v1/completions. With sdk.WithOnToken the
// request is sent with "stream": true, the raw SSE lines are delivered to the
// callback and the result is nil.
func (c *Client) GenerateCompletion(ctx context.Context, req *oai.CompletionNewParams, opts ...sdk.CallOption) (*oai.Completion, error) {
	if sdk.IsNil(req) {
		return nil, errors.ArgumentNull("request")
	}
	body, err := streamable(req, opts)
	if err != nil {
		return nil, err
	}
	return post[oai.Completion](ctx, c.executor, PathCompletions, body, opts)
}

// GenerateChatCompletion posts req to v1/chat/completions. Streaming works as
// in GenerateCompletion.
func (c *Client) GenerateChatCompletion(ctx context.Context, req *oai.ChatCompletionNewParams, opts ...sdk.CallOption) (*oai.ChatCompletion, error) {
	if sdk.IsNil(req) {
		return nil, errors.ArgumentNull("request")
	}
	body, err := streamable(req, opts)
	if err != nil {
		return nil, err
	}
	return post[oai.ChatCompletion](ctx, c.executor, PathChatCompletions, body, opts)
}

// GenerateEmbeddings posts req to v1/embeddings.
func (c *Client) GenerateEmbeddings(ctx context.Context, req *oai.EmbeddingNewParams, opts ...sdk.CallOption) (*oai.CreateEmbeddingResponse, error) {
	if sdk.IsNil(req) {
		return nil, errors.ArgumentNull("request")
	}
	return post[oai.CreateEmbeddingResponse](ctx, c.executor, PathEmbeddings, req, opts)
}

// StreamCompletion posts req with "stream": true and returns the SSE lines as
// a TokenStream. Use ParseCompletionChunk on each token.
func (c *Client) StreamCompletion(ctx context.Context, req *oai.CompletionNewParams, opts ...sdk.CallOption) (*stream.TokenStream, error) {
	if sdk.IsNil(req) {
		return nil, errors.ArgumentNull("request")
	}
	return streamed(ctx, c.executor, PathCompletions, req, opts)
}

// StreamChatCompletion posts req with "stream": true and returns the SSE
// lines as a TokenStream. Use ParseChatChunk on each token.
func (c *Client) StreamChatCompletion(ctx context.Context, req *oai.ChatCompletionNewParams, opts ...sdk.CallOption) (*stream.TokenStream, error) {
	if sdk.IsNil(req) {
		return nil, errors.ArgumentNull("request")
	}
	return streamed(ctx, c.executor, PathChatCompletions, req, opts)
}

// post sends req and decodes the result. A buffered call must yield a
// document; only a streaming call returns nil.
func post[T any](ctx context.Context, e *sdk.Executor, path string, req any, opts []sdk.CallOption) (*T, error) {
	v, err := e.Post(ctx, path, req, opts...)
	if err != nil {
		return nil, err
	}
	if sdk.Streaming(opts...) {
		return nil, nil
	}
	return sdk.DecodeRequired[T](v)
}

// streamable returns req unchanged, or re-encoded with "stream": true when
// the call delivers tokens.
func streamable(req any, opts []sdk.CallOption) (any, error) {
	if !sdk.Streaming(opts...) {
		return req, nil
	}
	return withStream(req)
}

func streamed(ctx context.Context, e *sdk.Executor, path string, req any, opts []sdk.CallOption) (*stream.TokenStream, error) {
	body, err := withStream(req)
	if err != nil {
		return nil, err
	}
	return e.Stream(ctx, path, body, opts...)
}

// withStream re-encodes req as a JSON object with "stream" set to true.
func withStream(req any) (map[string]any, error) {
	data, err := serializer.Serialize(req, serializer.WithPretty(false))
	if err != nil {
		return nil, err
	}

	body, ok := serializer.Deserialize(data).(map[string]any)
	if !ok {
		return nil, errors.InvalidArgument("request must encode to a JSON object")
	}
	body["stream"] = true
	return body, nil
}

// sseData returns the payload of an SSE "data:" line. Blank lines, comments,
// other fields and the [DONE] sentinel yield false.
func sseData(token string) (string, bool) {
	token = strings.TrimSpace(token)
	payload, found := strings.CutPrefix(token, "data:")
	if !found {
		return "", false
	}

	payload = strings.TrimSpace(payload)
	if payload == "" || payload == "[DONE]" {
		return "", false
	}
	return payload, true
}

// ParseChatChunk decodes one streamed chat completion token.
func ParseChatChunk(token string) (*oai.ChatCompletionChunk, bool) {
	payload, ok := sseData(token)
	if !ok {
		return nil, false
	}

	chunk := &oai.ChatCompletionChunk{}
	if err := json.Unmarshal([]byte(payload), chunk); err != nil {
		return nil, false
	}
	return chunk, true
}

// ParseCompletionChunk decodes one streamed legacy completion token.
func ParseCompletionChunk(token string) (*oai.Completion, bool) {
	payload, ok := sseData(token)
	if !ok {
		return nil, false
	}

	chunk := &oai.Completion{}
	if err := json.Unmarshal([]byte(payload), chunk); err != nil {
		return nil, false
	}
	return chunk, true
}
