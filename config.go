package mocapcsv

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the settings of a conversion run.
type Config struct {
	// Folder where the *.json session logs are found.
	OriginFolder string `mapstructure:"origin_folder"`

	// Folder where the CSV files are written.  It is created if needed.
	DestFolder string `mapstructure:"dest_folder"`

	// Joints written for each body, in column order.
	JointKeys []string `mapstructure:"joint_keys"`

	// Number of rows buffered in memory between two writes.
	FlushThreshold int `mapstructure:"flush_threshold"`

	// Sampling frequency of the sensor in Hz, used to report recording
	// durations.
	Frequency float64 `mapstructure:"frequency"`

	// When true a file that cannot be converted does not stop the run.
	ContinueOnError bool `mapstructure:"continue_on_error"`
}

// DefaultJointKeys follows the Kinect v2 upper body layout used by the
// recorder:
//
//	2: neck, 3: head
//	4, 5, 6, 7: left shoulder, elbow, wrist, hand
//	8, 9, 10, 11: right shoulder, elbow, wrist, hand
var DefaultJointKeys = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}

func DefaultConfig() Config {
	return Config{
		OriginFolder:    "./data/raw_data",
		DestFolder:      "./data/csv_data",
		JointKeys:       append([]string(nil), DefaultJointKeys...),
		FlushThreshold:  1000,
		Frequency:       30,
		ContinueOnError: true,
	}
}

// Validate checks that the configuration can be used for a run.
func (c Config) Validate() error {
	switch {
	case c.OriginFolder == "":
		return errors.New("origin folder must be set")
	case c.DestFolder == "":
		return errors.New("destination folder must be set")
	case len(c.JointKeys) == 0:
		return errors.New("at least one joint key is required")
	case c.FlushThreshold < 1:
		return fmt.Errorf("flush threshold must be positive, got %d", c.FlushThreshold)
	case c.Frequency <= 0:
		return fmt.Errorf("frequency must be positive, got %g", c.Frequency)
	}
	seen := make(map[string]bool, len(c.JointKeys))
	for _, key := range c.JointKeys {
		if key == "" {
			return errors.New("joint keys cannot be empty")
		}
		if seen[key] {
			return fmt.Errorf("duplicate joint key %q", key)
		}
		seen[key] = true
	}
	return nil
}

// LoadConfig reads a configuration file (YAML, JSON or TOML, chosen from the
// extension) on top of DefaultConfig.  An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("origin_folder", def.OriginFolder)
	v.SetDefault("dest_folder", def.DestFolder)
	v.SetDefault("joint_keys", def.JointKeys)
	v.SetDefault("flush_threshold", def.FlushThreshold)
	v.SetDefault("frequency", def.Frequency)
	v.SetDefault("continue_on_error", def.ContinueOnError)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config file %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
