package cfggen

import (
	"fmt"
	"io"

	"github.com/ChiaYuChang/sharpai/pkgs/sdk"
	"github.com/spf13/viper"
)

type CfgGen struct {
	dst *viper.Viper // Destination viper instance for building the output config
	src *viper.Viper // Source viper instance for reading environment variables (e.g., .env)
}

// NewCfgGen creates a new CfgGen instance, taking a source viper instance
// that has already loaded the environment variables (e.g., from .env).
func NewCfgGen(src *viper.Viper) *CfgGen {
	return &CfgGen{
		dst: viper.New(), // Create a new viper instance for the generated config
		src: src,
	}
}

func (c *CfgGen) WriteTo(w io.Writer, t string) error {
	c.dst.SetConfigType(t)
	if err := c.dst.WriteConfigTo(w); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

// setIfPresent copies key from the source only when it is set, so defaults
// on the destination survive missing .env entries.
func (c *CfgGen) setIfPresent(dst, key string, get func(string) any) {
	if c.src.IsSet(key) {
		c.dst.Set(dst, get(key))
	}
}

func (c *CfgGen) AddModeConfig() {
	c.dst.SetDefault("mode", "dev")
	c.setIfPresent("mode", "MODE", func(k string) any { return c.src.GetString(k) })
}

func (c *CfgGen) AddSDKConfig() {
	c.dst.SetDefault("sdk.endpoint", "http://localhost:11434")
	c.dst.SetDefault("sdk.timeout_ms", sdk.DefaultTimeoutMs)
	c.dst.SetDefault("sdk.log_level", "")

	str := func(k string) any { return c.src.GetString(k) }
	c.setIfPresent("sdk.endpoint", "SHARPAI_ENDPOINT", str)
	c.setIfPresent("sdk.bearer_token", "SHARPAI_BEARER_TOKEN", str)
	c.setIfPresent("sdk.bearer_token_file", "SHARPAI_BEARER_TOKEN_FILE", str)
	c.setIfPresent("sdk.email", "SHARPAI_EMAIL", str)
	c.setIfPresent("sdk.password", "SHARPAI_PASSWORD", str)
	c.setIfPresent("sdk.password_file", "SHARPAI_PASSWORD_FILE", str)
	c.setIfPresent("sdk.timeout_ms", "SHARPAI_TIMEOUT_MS", func(k string) any { return c.src.GetInt(k) })
	c.setIfPresent("sdk.log_level", "SHARPAI_LOG_LEVEL", str)
}

func (c *CfgGen) AddLoggerConfig() {
	c.dst.SetDefault("logger.console", true)
	c.dst.SetDefault("logger.include_timestamp", true)

	boolean := func(k string) any { return c.src.GetBool(k) }
	c.setIfPresent("logger.level", "LOG_LEVEL", func(k string) any { return c.src.GetString(k) })
	c.setIfPresent("logger.console", "LOG_CONSOLE", boolean)
	c.setIfPresent("logger.log_file", "LOG_FILE", func(k string) any { return c.src.GetString(k) })
	c.setIfPresent("logger.include_timestamp", "LOG_INCLUDE_TIMESTAMP", boolean)
	c.setIfPresent("logger.use_unix_timestamp", "LOG_USE_UNIX_TIMESTAMP", boolean)
}

func (c *CfgGen) AddOtelConfig() {
	c.dst.SetDefault("otel.service_name", "sharpai")
	c.dst.SetDefault("otel.insecure", false)
	c.dst.SetDefault("otel.sample_ratio", 1.0)

	c.setIfPresent("otel.service_name", "OTEL_SERVICE_NAME", func(k string) any { return c.src.GetString(k) })
	c.setIfPresent("otel.collector_endpoint", "OTEL_COLLECTOR_ENDPOINT", func(k string) any { return c.src.GetString(k) })
	c.setIfPresent("otel.insecure", "OTEL_INSECURE", func(k string) any { return c.src.GetBool(k) })
	c.setIfPresent("otel.sample_ratio", "OTEL_SAMPLE_RATIO", func(k string) any { return c.src.GetFloat64(k) })
}
