// Package config resolves run settings from flags, GPT2DATA_* environment
// variables and an optional YAML file, and validates them before any I/O.
package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/viper"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
	"github.com/trisongz/gpt2-text-generation/pkg/source"
	"github.com/trisongz/gpt2-text-generation/pkg/split"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "GPT2DATA"

// Keys.
const (
	KeyInput       = "input"
	KeyOutput      = "output"
	KeyInputFormat = "input_format"
	KeyFormat      = "format"
	KeyTextField   = "text_field"
	KeyLabelField  = "label_field"
	KeyFields      = "fields"
	KeySkipInvalid = "skip_invalid"
	KeyManifest    = "manifest"
	KeyMetricsFile = "metrics_file"

	KeyS3Endpoint  = "s3.endpoint"
	KeyS3Region    = "s3.region"
	KeyS3AccessKey = "s3.access_key"
	KeyS3SecretKey = "s3.secret_key"
	KeyS3PathStyle = "s3.path_style"
)

// Config holds the resolved settings of one run.
type Config struct {
	Input       string
	Output      string
	InputFormat source.Format
	Format      split.Encoding
	Fields      record.Fields
	SkipInvalid bool
	Manifest    bool
	MetricsFile string
	S3          storage.S3Config
}

// Error reports an invalid setting.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyFormat, string(split.CSV))
	v.SetDefault(KeyTextField, record.DefaultTextField)
	v.SetDefault(KeyManifest, true)
	return v
}

// LoadFile merges a YAML config file into v.
func LoadFile(v *viper.Viper, file string) error {
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	return v.ReadInConfig()
}

// Load resolves and validates a Config from v. Input and output locations
// are not required here; commands that need them call RequireInput.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Input:       strings.TrimSpace(v.GetString(KeyInput)),
		Output:      strings.TrimSpace(v.GetString(KeyOutput)),
		SkipInvalid: v.GetBool(KeySkipInvalid),
		Manifest:    v.GetBool(KeyManifest),
		MetricsFile: v.GetString(KeyMetricsFile),
		S3: storage.S3Config{
			Endpoint:        v.GetString(KeyS3Endpoint),
			Region:          v.GetString(KeyS3Region),
			AccessKeyID:     v.GetString(KeyS3AccessKey),
			SecretAccessKey: v.GetString(KeyS3SecretKey),
			UsePathStyle:    v.GetBool(KeyS3PathStyle),
		},
	}

	enc, err := split.ParseEncoding(v.GetString(KeyFormat))
	if err != nil {
		return nil, &Error{Key: KeyFormat, Reason: err.Error()}
	}
	cfg.Format = enc

	if s := v.GetString(KeyInputFormat); s != "" {
		f, err := source.ParseFormat(s)
		if err != nil {
			return nil, &Error{Key: KeyInputFormat, Reason: err.Error()}
		}
		cfg.InputFormat = f
	}

	if names := fieldList(v); len(names) > 0 {
		fields, err := record.FieldsFromList(names)
		if err != nil {
			return nil, err
		}
		cfg.Fields = fields
	} else {
		cfg.Fields = record.Fields{
			Text:  strings.TrimSpace(v.GetString(KeyTextField)),
			Label: strings.TrimSpace(v.GetString(KeyLabelField)),
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Fields.Text == "" {
		return &Error{Key: KeyTextField, Reason: "must not be empty"}
	}
	if c.Fields.Label == c.Fields.Text {
		return &Error{Key: KeyLabelField, Reason: "must differ from the text field"}
	}
	if c.InputFormat == source.Text && c.Fields.Labeled() {
		return &Error{Key: KeyLabelField, Reason: "plain-text input has no label field"}
	}
	return nil
}

// RequireInput checks that an input location is set and resolves the input
// format and output base path from it when they are not configured.
func (c *Config) RequireInput() error {
	if c.Input == "" {
		return &Error{Key: KeyInput, Reason: "is required"}
	}
	if c.InputFormat == "" {
		f, err := source.FormatFromPath(c.Input)
		if err != nil {
			return &Error{Key: KeyInputFormat, Reason: err.Error()}
		}
		c.InputFormat = f
	}
	if c.Output == "" {
		c.Output = DefaultOutput(c.Input)
	}
	return c.validate()
}

// RequireOutput checks that an output base path is set.
func (c *Config) RequireOutput() error {
	if c.Output == "" {
		return &Error{Key: KeyOutput, Reason: "is required"}
	}
	return nil
}

// DefaultOutput derives an output base from an input location by dropping
// its extension. Remote http inputs are written to the working directory.
func DefaultOutput(input string) string {
	base := input
	if storage.SchemeOf(input) == storage.SchemeHTTP {
		base = path.Base(input)
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// fieldList reads the ordered field list. Environment variables and scalar
// YAML values arrive as one comma-separated string.
func fieldList(v *viper.Viper) []string {
	if s, ok := v.Get(KeyFields).(string); ok {
		return removeBlank(strings.Split(s, ","))
	}
	return removeBlank(v.GetStringSlice(KeyFields))
}

func removeBlank(slice []string) []string {
	var result []string
	for _, val := range slice {
		if trim := strings.TrimSpace(val); trim != "" {
			result = append(result, trim)
		}
	}
	return result
}
