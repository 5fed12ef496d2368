package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
	"src.nixrepl.dev/pkg/evaluator"
)

// Config is the configuration of the evaluation server. It can be read from
// a YAML file; keys are the yaml tags of the fields.
type Config struct {
	Addr string `yaml:"addr"`
	Port int    `yaml:"port"`
	// If not empty, requests must carry it in the X-Nix-Repl-Token header.
	Token string `yaml:"token"`
	// Limit on the running time of one evaluation; 0 means no limit.
	Timeout time.Duration `yaml:"timeout"`
	// Limit on the size of request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// If positive, evaluator output is truncated to at most this many bytes,
	// without splitting a character.
	MaxOutputBytes int `yaml:"max_output_bytes"`
	// If positive, at most this many evaluations run at the same time.
	MaxConcurrent int `yaml:"max_concurrent"`
	// Host names whose origins get CORS headers. "*" allows all origins;
	// an empty list disables CORS.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// Command line of the evaluator. The code is appended as the last
	// argument.
	Evaluator []string `yaml:"evaluator"`
	// If not empty, path of the database evaluations are recorded in.
	DB string `yaml:"db"`
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Addr:           "0.0.0.0",
		Port:           8080,
		Timeout:        5 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"localhost", "127.0.0.1"},
		Evaluator: append([]string{evaluator.DefaultPath},
			evaluator.DefaultArgs...),
	}
}

// LoadConfig reads a YAML configuration file, using DefaultConfig for keys
// the file doesn't set. Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := ParseConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig is like LoadConfig, but reads from r.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks that the values in the config make sense.
func (cfg Config) Validate() error {
	switch {
	case cfg.Port < 0 || cfg.Port > 65535:
		return fmt.Errorf("port %d out of range", cfg.Port)
	case cfg.Timeout < 0:
		return errors.New("timeout must not be negative")
	case cfg.MaxBodyBytes <= 0:
		return errors.New("max_body_bytes must be positive")
	case cfg.MaxOutputBytes < 0:
		return errors.New("max_output_bytes must not be negative")
	case cfg.MaxConcurrent < 0:
		return errors.New("max_concurrent must not be negative")
	case len(cfg.Evaluator) == 0 || cfg.Evaluator[0] == "":
		return errors.New("evaluator must not be empty")
	}
	return nil
}

// ListenAddr returns the address to listen on, in the form accepted by
// net.Listen.
func (cfg Config) ListenAddr() string {
	return net.JoinHostPort(cfg.Addr, strconv.Itoa(cfg.Port))
}

// NewEvaluator returns the evaluator described by cfg.
func (cfg Config) NewEvaluator() *evaluator.Command {
	return &evaluator.Command{
		Path:      cfg.Evaluator[0],
		Args:      append([]string(nil), cfg.Evaluator[1:]...),
		Timeout:   cfg.Timeout,
		MaxOutput: cfg.MaxOutputBytes,
	}
}
