// Package config handles blockexpr.toml settings and their environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"blockexpr/pkg/expression"

	"fortio.org/log"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	FileName = "blockexpr.toml"
	EnvFile  = ".env"

	// EnvPrefix starts every environment override.
	EnvPrefix = "BLOCKEXPR_"
)

// Config bounds evaluations and sets up the command line tool.
type Config struct {
	Timeout           time.Duration `toml:"timeout"`
	MaxLoopIterations int           `toml:"max-loop-iterations"`
	LogLevel          string        `toml:"log-level"`
	Optimize          bool          `toml:"optimize"`
	Workers           int           `toml:"workers"`

	// Dir is the directory the settings were loaded from.
	Dir string `toml:"-"`
}

func Default() *Config {
	return &Config{
		Timeout:           expression.DefaultTimeout,
		MaxLoopIterations: expression.DefaultLimits().MaxIterations,
		LogLevel:          "info",
		Workers:           runtime.GOMAXPROCS(0),
	}
}

// Load reads blockexpr.toml and .env from dir. Both files are optional.
// Variables already set in the process environment win over .env.
func Load(dir string) (*Config, error) {
	c := Default()
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.Dir = abs

	path := filepath.Join(abs, FileName)
	if _, err := os.Stat(path); err == nil {
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
		for _, key := range md.Undecoded() {
			log.Warnf("%s: unknown setting %q", path, key.String())
		}
	}

	dotenv := map[string]string{}
	envPath := filepath.Join(abs, EnvFile)
	if _, err := os.Stat(envPath); err == nil {
		if dotenv, err = godotenv.Read(envPath); err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", envPath, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := c.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// FindAndLoad walks up from startDir to the first directory holding a
// blockexpr.toml and loads it. Without one, startDir itself is used.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, FileName)); err == nil {
			return Load(d)
		}
		parent := filepath.Dir(d)
		if parent == d {
			return Load(dir)
		}
		d = parent
	}
}

// ApplyEnv overrides settings from BLOCKEXPR_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "MAX_LOOP_ITERATIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_LOOP_ITERATIONS: %w", EnvPrefix, err))
		}
		c.MaxLoopIterations = n
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvPrefix + "OPTIMIZE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sOPTIMIZE: %w", EnvPrefix, err))
		}
		c.Optimize = b
	}
	if v, ok := lookup(EnvPrefix + "WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWORKERS: %w", EnvPrefix, err))
		}
		c.Workers = n
	}
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %v", c.Timeout))
	}
	if c.MaxLoopIterations <= 0 {
		errs = append(errs, fmt.Errorf("max-loop-iterations must be positive, got %d", c.MaxLoopIterations))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if _, err := log.ValidateLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log-level: %w", err))
	}
	return errors.Join(errs...)
}

// Limits are the bounds the settings put on each evaluation.
func (c *Config) Limits() expression.Limits {
	return expression.Limits{Timeout: c.Timeout, MaxIterations: c.MaxLoopIterations}
}

// Compiler returns a compiler using the built-in functions and these
// settings.
func (c *Config) Compiler() *expression.Compiler {
	comp := expression.NewCompiler()
	comp.Limits = c.Limits()
	comp.Optimize = c.Optimize
	return comp
}

// SetupLogging applies the configured log level.
func (c *Config) SetupLogging() error {
	lvl, err := log.ValidateLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLogLevel(lvl)
	return nil
}
