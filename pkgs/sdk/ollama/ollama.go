// Package ollama exposes the Ollama REST endpoints on top of the shared
// request executor. Payloads are the types of github.com/ollama/ollama/api.
package ollama

import (
	"context"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk"
	"github.com/ChiaYuChang/sharpai/pkgs/stream"
	"github.com/ChiaYuChang/sharpai/pkgs/utils"
	"github.com/ollama/ollama/api"
)

const (
	PathGenerate = "api/generate"
	PathChat     = "api/chat"
	PathPull     = "api/pull"
	PathEmbed    = "api/embed"
	PathTags     = "api/tags"
	PathDelete   = "api/delete"
	PathShow     = "api/show"
	PathPs       = "api/ps"
)

// Client is a stateless facade; all state lives in the executor.
type Client struct {
	executor *sdk.Executor
}

func New(executor *sdk.Executor) *Client {
	return &Client{executor: executor}
}

// GenerateCompletion posts req to api/generate. When req.Stream is unset it
// follows the call mode: streamed with sdk.WithOnToken, a single response
// otherwise. In streaming mode the NDJSON lines go to the callback and the
// result is nil.
func (c *Client) GenerateCompletion(ctx context.Context, req *api.GenerateRequest, opts ...sdk.CallOption) (*api.GenerateResponse, error) {
	if req == nil {
		return nil, errors.ArgumentNull("request")
	}

	r := *req
	if r.Stream == nil {
		r.Stream = utils.Ptr(sdk.Streaming(opts...))
	}
	return post[api.GenerateResponse](ctx, c.executor, PathGenerate, &r, opts)
}

// GenerateChatCompletion posts req to api/chat. req.Stream follows the call
// mode when unset.
func (c *Client) GenerateChatCompletion(ctx context.Context, req *api.ChatRequest, opts ...sdk.CallOption) (*api.ChatResponse, error) {
	if req == nil {
		return nil, errors.ArgumentNull("request")
	}

	r := *req
	if r.Stream == nil {
		r.Stream = utils.Ptr(sdk.Streaming(opts...))
	}
	return post[api.ChatResponse](ctx, c.executor, PathChat, &r, opts)
}

// PullModel posts req to api/pull. Progress lines are delivered to the
// callback in streaming mode; otherwise the final status is returned.
func (c *Client) PullModel(ctx context.Context, req *api.PullRequest, opts ...sdk.CallOption) (*api.ProgressResponse, error) {
	if req == nil {
		return nil, errors.ArgumentNull("request")
	}

	r := *req
	if r.Stream == nil {
		r.Stream = utils.Ptr(sdk.Streaming(opts...))
	}
	return post[api.ProgressResponse](ctx, c.executor, PathPull, &r, opts)
}

// GenerateEmbeddings posts req to api/embed.
func (c *Client) GenerateEmbeddings(ctx context.Context, req *api.EmbedRequest, opts ...sdk.CallOption) (*api.EmbedResponse, error) {
	if req == nil {
		return nil, errors.ArgumentNull("request")
	}
	return post[api.EmbedResponse](ctx, c.executor, PathEmbed, req, opts)
}

// ModelInformation posts req to api/show.
func (c *Client) ModelInformation(ctx context.Context, req *api.ShowRequest, opts ...sdk.CallOption) (*api.ShowResponse, error) {
	if req == nil {
		return nil, errors.ArgumentNull("request")
	}
	return post[api.ShowResponse](ctx, c.executor, PathShow, req, opts)
}

// ListLocalModels lists the models available on the server.
func (c *Client) ListLocalModels(ctx context.Context, opts ...sdk.CallOption) (*api.ListResponse, error) {
	v, err := c.executor.Get(ctx, PathTags, opts...)
	if err != nil {
		return nil, err
	}
	return sdk.DecodeRequired[api.ListResponse](v)
}

// ListRunningModels lists the models currently loaded into memory.
func (c *Client) ListRunningModels(ctx context.Context, opts ...sdk.CallOption) (*api.ProcessResponse, error) {
	v, err := c.executor.Get(ctx, PathPs, opts...)
	if err != nil {
		return nil, err
	}
	return sdk.DecodeRequired[api.ProcessResponse](v)
}

// DeleteModel removes a model and its data.
func (c *Client) DeleteModel(ctx context.Context, req *api.DeleteRequest, opts ...sdk.CallOption) (bool, error) {
	if req == nil {
		return false, errors.ArgumentNull("request")
	}
	return c.executor.Delete(ctx, PathDelete, req, opts...)
}

// StreamCompletion forces streaming on req and returns the NDJSON lines as a
// TokenStream. Decode them with ParseGenerateChunk.
func (c *Client) StreamCompletion(ctx context.Context, req *api.GenerateRequest, opts ...sdk.CallOption) (*stream.TokenStream, error) {
	if req == nil {
		return nil, errors.ArgumentNull("request")
	}

	r := *req
	r.Stream = utils.Ptr(true)
	return c.executor.Stream(ctx, PathGenerate, &r, opts...)
}

// StreamChatCompletion forces streaming on req. Decode with ParseChatChunk.
func (c *Client) StreamChatCompletion(ctx context.Context, req *api.ChatRequest, opts ...sdk.CallOption) (*stream.TokenStream, error) {
	if req == nil {
		return nil, errors.ArgumentNull("request")
	}

	r := *req
	r.Stream = utils.Ptr(true)
	return c.executor.Stream(ctx, PathChat, &r, opts...)
}

// StreamPull forces streaming on req. Decode with ParseProgressChunk.
func (c *Client) StreamPull(ctx context.Context, req *api.PullRequest, opts ...sdk.CallOption) (*stream.TokenStream, error) {
	if req == nil {
		return nil, errors.ArgumentNull("request")
	}

	r := *req
	r.Stream = utils.Ptr(true)
	return c.executor.Stream(ctx, PathPull, &r, opts...)
}

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
