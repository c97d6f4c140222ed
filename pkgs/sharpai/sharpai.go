// Package sharpai bundles the OpenAI and Ollama facades over one shared
// executor and configuration.
package sharpai

import (
	"context"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk/ollama"
	"github.com/ChiaYuChang/sharpai/pkgs/sdk/openai"
	"github.com/rs/zerolog"
)

type SDK struct {
	OpenAI *openai.Client
	Ollama *ollama.Client

	executor *sdk.Executor
}

// New validates settings and builds an SDK whose facades share one executor.
func New(settings sdk.Settings, opts ...sdk.Option) (*SDK, error) {
	cfg, err := sdk.NewConfiguration(settings)
	if err != nil {
		return nil, err
	}

	executor, err := sdk.NewExecutor(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithExecutor(executor)
}

func NewWithExecutor(executor *sdk.Executor) (*SDK, error) {
	if executor == nil {
		return nil, errors.ArgumentNull("executor")
	}

	return &SDK{
		OpenAI:   openai.New(executor),
		Ollama:   ollama.New(executor),
		executor: executor,
	}, nil
}

// Executor returns the executor shared by the facades.
func (s *SDK) Executor() *sdk.Executor {
	return s.executor
}

// Config returns the current configuration snapshot.
func (s *SDK) Config() *sdk.Configuration {
	return s.executor.Config()
}

// ValidateConnectivity sends a HEAD to the configured endpoint and reports
// whether it answered with a 2xx status.
func (s *SDK) ValidateConnectivity(ctx context.Context, opts ...sdk.CallOption) (bool, error) {
	return s.executor.Head(ctx, s.executor.Config().Endpoint(), opts...)
}

// SetBearerToken switches authentication to a bearer token for later calls.
func (s *SDK) SetBearerToken(token string) error {
	return s.executor.UpdateConfig(func(c *sdk.Configuration) (*sdk.Configuration, error) {
		return c.WithBearerToken(token)
	})
}

// SetBasicAuth switches authentication to Basic credentials for later calls.
func (s *SDK) SetBasicAuth(email, password string) error {
	return s.executor.UpdateConfig(func(c *sdk.Configuration) (*sdk.Configuration, error) {
		return c.WithBasicAuth(&sdk.Credentials{Email: email, Password: password})
	})
}

func (s *SDK) SetEndpoint(endpoint string) error {
	return s.executor.UpdateConfig(func(c *sdk.Configuration) (*sdk.Configuration, error) {
		return c.WithEndpoint(endpoint)
	})
}

func (s *SDK) SetTimeoutMs(ms int) error {
	return s.executor.UpdateConfig(func(c *sdk.Configuration) (*sdk.Configuration, error) {
		return c.WithTimeoutMs(ms)
	})
}

func (s *SDK) SetLogLevel(level zerolog.Level) error {
	return s.executor.UpdateConfig(func(c *sdk.Configuration) (*sdk.Configuration, error) {
		return c.WithLogLevel(level), nil
	})
}
