package global

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ChiaYuChang/sharpai/pkgs/sdk"
	"github.com/ChiaYuChang/sharpai/pkgs/utils"
	"github.com/spf13/viper"
)

// SDKConfig holds the connection settings of the SDK.
// Endpoint is required. Authentication is optional: either a bearer token,
// or an email with a password. Secrets may be read from files, in which case
// the file content replaces the inline value.
type SDKConfig struct {
	Endpoint        string `json:"endpoint"          validate:"required,url"                                         mapstructure:"endpoint"`
	BearerToken     string `json:"bearer_token"                                                                      mapstructure:"bearer_token"`
	BearerTokenFile string `json:"bearer_token_file"                                                                 mapstructure:"bearer_token_file"`
	Email           string `json:"email"             validate:"required_with=Password"                               mapstructure:"email"`
	Password        string `json:"password"                                                                          mapstructure:"password"`
	PasswordFile    string `json:"password_file"                                                                     mapstructure:"password_file"`
	TimeoutMs       int    `json:"timeout_ms"        validate:"gte=0"                                                mapstructure:"timeout_ms"`
	LogLevel        string `json:"log_level"         validate:"omitempty,oneof=trace debug info warn error disabled" mapstructure:"log_level"`
}

func LoadSDKConfig() *SDKConfig {
	viper.SetDefault("sdk.endpoint", "http://localhost:11434")
	viper.SetDefault("sdk.timeout_ms", sdk.DefaultTimeoutMs)

	return &SDKConfig{
		Endpoint:        viper.GetString("sdk.endpoint"),
		BearerToken:     viper.GetString("sdk.bearer_token"),
		BearerTokenFile: viper.GetString("sdk.bearer_token_file"),
		Email:           viper.GetString("sdk.email"),
		Password:        viper.GetString("sdk.password"),
		PasswordFile:    viper.GetString("sdk.password_file"),
		TimeoutMs:       viper.GetInt("sdk.timeout_ms"),
		LogLevel:        viper.GetString("sdk.log_level"),
	}
}

// MarshalJSON is a custom JSON marshaller that masks the secrets.
func (c SDKConfig) MarshalJSON() ([]byte, error) {
	type Alias SDKConfig
	return json.Marshal(&struct {
		BearerToken string `json:"bearer_token,omitempty"`
		Password    string `json:"password,omitempty"`
		*Alias
	}{
		BearerToken: utils.Mask(c.BearerToken),
		Password:    utils.Mask(c.Password),
		Alias:       (*Alias)(&c),
	})
}

// MarshalJSONPlain is a custom JSON marshaller that does not mask the secrets.
// Use with caution, it exposes the credentials.
func (c SDKConfig) MarshalJSONPlain() ([]byte, error) {
	type Alias SDKConfig
	return json.Marshal(&struct {
		*Alias
	}{
		Alias: (*Alias)(&c),
	})
}

// ReadSecretFiles reads the bearer token and the password from their files.
// Empty file paths are skipped.
func (c *SDKConfig) ReadSecretFiles() error {
	token, err := readSecret(c.BearerTokenFile, c.BearerToken, "bearer_token")
	if err != nil {
		return err
	}
	c.BearerToken = token

	password, err := readSecret(c.PasswordFile, c.Password, "password")
	if err != nil {
		return err
	}
	c.Password = password
	return nil
}

func readSecret(path, inline, name string) (string, error) {
	if path == "" {
		return inline, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s file %s: %w", name, path, err)
	}

	secret := strings.TrimSpace(string(data))
	if inline != "" {
		Logger.Warn().
			Str(name, utils.Mask(inline)).
			Str(name+"_from_file", utils.Mask(secret)).
			Msgf("%s provided in config will be replaced by %s from file", name, name)
	}
	return secret, nil
}

// Validate checks the SDKConfig for required fields and conditions.
// It is recommended to call ReadSecretFiles() before calling this method.
func (c *SDKConfig) Validate() error {
	if err := Validator().Struct(c); err != nil {
		return fmt.Errorf("invalid SDK configuration: %w", err)
	}

	if c.BearerToken != "" && c.Email != "" {
		Logger.Warn().
			Str("email", c.Email).
			Msg("both bearer token and basic credentials are set, basic credentials take precedence")
	}

	if strings.HasPrefix(c.Endpoint, "http://") && (c.BearerToken != "" || c.Password != "") {
		Logger.Warn().
			Str("endpoint", c.Endpoint).
			Msg("credentials are sent over plain http, consider using https when exposing to outer network")
	}
	return nil
}

// Settings converts the configuration into sdk.Settings.
func (c *SDKConfig) Settings() (sdk.Settings, error) {
	if c == nil {
		return sdk.Settings{}, fmt.Errorf("SDK configuration is nil, call LoadConfigs() first")
	}

	s := sdk.Settings{
		Endpoint:    c.Endpoint,
		BearerToken: c.BearerToken,
		TimeoutMs:   c.TimeoutMs,
		LogLevel:    c.LogLevel,
	}
	if c.Email != "" {
		s.BasicAuth = &sdk.Credentials{Email: c.Email, Password: c.Password}
	}
	return s, nil
}

// String returns a JSON representation of the SDKConfig with masked secrets.
func (c SDKConfig) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("SDKConfig{Endpoint: %s, TimeoutMs: %d}", c.Endpoint, c.TimeoutMs)
	}
	return string(b)
}
