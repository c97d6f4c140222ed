package global

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type ZeroLogConfig struct {
	Level            string `json:"level"              validate:"omitempty,oneof=trace debug info warn error disabled" mapstructure:"level"`
	Console          bool   `json:"console"                                                                            mapstructure:"console"`
	LogFile          string `json:"log_file"                                                                           mapstructure:"log_file"`
	IncludeTimestamp bool   `json:"include_timestamp"                                                                  mapstructure:"include_timestamp"`
	UseUnixTimestamp bool   `json:"use_unix_timestamp"                                                                 mapstructure:"use_unix_timestamp"`
}

func LoadZeroLogConfig() *ZeroLogConfig {
	viper.SetDefault("logger.console", true)
	viper.SetDefault("logger.include_timestamp", true)

	return &ZeroLogConfig{
		Level:            viper.GetString("logger.level"),
		Console:          viper.GetBool("logger.console"),
		LogFile:          viper.GetString("logger.log_file"),
		IncludeTimestamp: viper.GetBool("logger.include_timestamp"),
		UseUnixTimestamp: viper.GetBool("logger.use_unix_timestamp"),
	}
}

func (c *ZeroLogConfig) Validate() error {
	if err := Validator().Struct(c); err != nil {
		return fmt.Errorf("invalid logger configuration: %w", err)
	}
	return nil
}

// NewLogger builds a logger writing to stderr (console formatted when Console
// is set) and, when LogFile is set, to that file as JSON. The returned close
// function releases the file.
func (c *ZeroLogConfig) NewLogger() (zerolog.Logger, func() error, error) {
	closer := func() error { return nil }

	var writers []io.Writer
	if c.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, os.Stderr)
	}

	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("failed to open log file %s: %w", c.LogFile, err)
		}
		writers = append(writers, f)
		closer = f.Close
	}

	if c.UseUnixTimestamp {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).With()
	if c.IncludeTimestamp {
		ctx = ctx.Timestamp()
	}
	logger := ctx.Logger()

	if c.Level != "" {
		level, err := zerolog.ParseLevel(c.Level)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
		logger = logger.Level(level)
	}
	return logger, closer, nil
}

type OtelConfig struct {
	ServiceName       string `json:"service_name"       mapstructure:"service_name"`
	CollectorEndpoint string `json:"collector_endpoint" mapstructure:"collector_endpoint"`
	Insecure          bool   `json:"insecure"           mapstructure:"insecure"`
	// SampleRatio is the fraction of root spans kept; child spans follow their parent.
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

func LoadOtelConfig() *OtelConfig {
	viper.SetDefault("otel.service_name", "sharpai")
	viper.SetDefault("otel.sample_ratio", 1.0)

	return &OtelConfig{
		ServiceName:       viper.GetString("otel.service_name"),
		CollectorEndpoint: viper.GetString("otel.collector_endpoint"),
		Insecure:          viper.GetBool("otel.insecure"),
		SampleRatio:       viper.GetFloat64("otel.sample_ratio"),
	}
}

func (c *OtelConfig) Validate() error {
	return Validator().Struct(c)
}

// Enabled reports whether a collector endpoint is configured.
func (c *OtelConfig) Enabled() bool {
	return c != nil && c.CollectorEndpoint != ""
}
