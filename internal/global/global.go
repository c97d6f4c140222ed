// Package global provides centralized initialization and configuration for core services.
package global

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ChiaYuChang/sharpai/pkgs/sdk"
	"github.com/ChiaYuChang/sharpai/pkgs/sharpai"
	"github.com/ChiaYuChang/sharpai/pkgs/utils"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Singleton is a generic type that holds a single instance of a type T.
type Singleton[T any] struct {
	instance *T
	once     sync.Once
	errs     []error
}

// NewSingleton creates a new instance of Singleton.
func NewSingleton[T any]() *Singleton[T] {
	return &Singleton[T]{
		instance: new(T),
		once:     sync.Once{},
		errs:     nil,
	}
}

// Errors returns a slice of errors encountered during initialization.
func (s *Singleton[T]) Errors() []error {
	return s.errs
}

func (s *Singleton[T]) Panic(msg string) {
	sb := strings.Builder{}
	for _, err := range s.errs {
		sb.WriteString(fmt.Sprintf(" - %s\n", err))
	}
	panic(fmt.Errorf("%s:\n%s", msg, sb.String()))
}

func (s *Singleton[T]) CleanUp() {
	s.instance = nil
	s.errs = nil
}

func (s *Singleton[T]) Reset() {
	s.once = sync.Once{}
	s.CleanUp()
}

// Logger is the global zerolog logger instance.
var Logger zerolog.Logger = zerolog.Nop()

// mode indicates the current running mode (e.g., "dev", "prod").
var mode string

// SetMode sets the current running mode (e.g., "dev", "prod").
func SetMode(m string) {
	mode = m
}

// Mode returns the current running mode (e.g., "dev", "prod").
func Mode() string {
	return utils.DefaultIfZero(mode, "dev")
}

// configuration holds the application configuration.
type configuration struct {
	SDK    *SDKConfig
	Logger *ZeroLogConfig
	Otel   *OtelConfig
}

var config = NewSingleton[configuration]()

// Config returns the singleton instance of the configuration.
// It reads the SDK, logger and otel sections sequentially.
func Config() *configuration {
	config.once.Do(func() {
		c := &configuration{}

		// Initialize SDK configuration
		c.SDK = LoadSDKConfig()
		if err := c.SDK.ReadSecretFiles(); err != nil {
			config.errs = append(config.errs, err)
			Logger.Error().
				Err(config.errs[len(config.errs)-1]).
				Msg("Failed to read SDK secret files")
		}

		if err := c.SDK.Validate(); err != nil {
			config.errs = append(config.errs,
				fmt.Errorf("SDK configuration validation failed: %w", err))
			Logger.Error().
				Err(config.errs[len(config.errs)-1]).
				Msg("SDK configuration validation failed")
		} else {
			Logger.Info().Msg("SDK configuration loaded successfully")
		}

		// Initialize logger configuration
		c.Logger = LoadZeroLogConfig()
		if err := c.Logger.Validate(); err != nil {
			config.errs = append(config.errs, err)
			Logger.Error().
				Err(config.errs[len(config.errs)-1]).
				Msg("Logger configuration validation failed")
		}

		// Initialize otel configuration, optional
		c.Otel = LoadOtelConfig()
		if err := c.Otel.Validate(); err != nil {
			config.errs = append(config.errs, err)
			Logger.Error().
				Err(config.errs[len(config.errs)-1]).
				Msg("Otel configuration validation failed")
		}
		config.instance = c
	})

	if len(config.errs) > 0 {
		config.Panic("configuration errors")
	}
	return config.instance
}

// Validate singleton instance
var validate = NewSingleton[validator.Validate]()

// Validator returns the singleton instance of the validator.
func Validator() *validator.Validate {
	validate.once.Do(func() {
		validate.instance = validator.New(validator.WithRequiredStructEnabled())
		Logger.Debug().Msg("Validator initialized")
	})

	if len(validate.errs) > 0 {
		validate.Panic("validator errors")
	}
	return validate.instance
}

// metrics is a singleton for the SDK prometheus collectors.
var metrics = NewSingleton[sdk.Metrics]()

// Metrics returns the SDK collectors registered on the default registry.
func Metrics() *sdk.Metrics {
	metrics.once.Do(func() {
		m, err := sdk.NewMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			metrics.errs = append(metrics.errs,
				fmt.Errorf("failed to register SDK metrics: %w", err))
			Logger.Error().
				Err(metrics.errs[len(metrics.errs)-1]).
				Msg("Failed to register SDK metrics")
			return
		}
		metrics.instance = m
	})

	if len(metrics.errs) > 0 {
		metrics.Panic("metrics errors")
	}
	return metrics.instance
}

// client is a singleton for the SDK built from Config().
var client = NewSingleton[sharpai.SDK]()

// SDK returns the singleton SDK instance built from the loaded configuration.
func SDK() *sharpai.SDK {
	client.once.Do(func() {
		settings, err := Config().SDK.Settings()
		if err != nil {
			client.errs = append(client.errs, err)
			Logger.Error().Err(err).Msg("Failed to derive SDK settings")
			return
		}

		s, err := sharpai.New(settings,
			sdk.WithLogger(Logger),
			sdk.WithMetrics(Metrics()))
		if err != nil {
			client.errs = append(client.errs,
				fmt.Errorf("failed to create SDK: %w", err))
			Logger.Error().
				Err(client.errs[len(client.errs)-1]).
				Msg("Failed to create SDK")
			return
		}

		Logger.Info().
			Object("config", s.Config()).
			Msg("SDK initialized")
		client.instance = s
	})

	if len(client.errs) > 0 {
		client.Panic("SDK errors")
	}
	return client.instance
}

// ReadDotEnvFile reads a dotfile configuration using Viper.
func ReadDotEnvFile(fname, ftype string, fpath []string) error {
	viper.SetConfigName(fname)
	viper.SetConfigType(ftype)
	for _, p := range fpath {
		viper.AddConfigPath(p)
	}
	return viper.ReadInConfig()
}

// LoadConfigs loads configuration from file and sets up the logger and mode.
// Environment variables prefixed with SHARPAI_ override file values, e.g.
// SHARPAI_SDK_ENDPOINT for sdk.endpoint.
func LoadConfigs(fname, ftype string, fpath []string) error {
	viper.SetEnvPrefix("SHARPAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := ReadDotEnvFile(fname, ftype, fpath); err != nil {
		Logger.Error().Err(err).Msg("Failed to read configuration file")
		return fmt.Errorf("failed to read configuration file: %w", err)
	}
	SetMode(utils.DefaultIfZero(viper.GetString("MODE"), "dev"))
	Logger = InitBaseLogger()
	return nil
}

// InitBaseLogger initializes the base logger for the application.
func InitBaseLogger() zerolog.Logger {
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	logger = logger.Level(utils.IfElse(
		Mode() == "dev",
		zerolog.DebugLevel,
		zerolog.InfoLevel))

	logger.Debug().
		Str("mode", Mode()).
		Str("log_level", logger.GetLevel().String()).
		Msg("Base Logger Initialized")
	return logger
}

func CleanUp() {
	defer client.CleanUp()
	defer validate.CleanUp()
	defer config.CleanUp()

	if metrics.instance != nil && metrics.instance.Requests != nil {
		for _, c := range metrics.instance.Collectors() {
			prometheus.DefaultRegisterer.Unregister(c)
		}
	}
	metrics.CleanUp()
}

func Reset() {
	Logger.Warn().Msg("Resetting global state")
	CleanUp()
	client.Reset()
	validate.Reset()
	config.Reset()
	metrics.Reset()
}
