package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override defaults. Explicit flags still win.
const (
	EnvBaseDir   = "LISTINGDL_BASE_DIR"
	EnvDelay     = "LISTINGDL_DELAY"
	EnvUserAgent = "LISTINGDL_USER_AGENT"
	EnvTags      = "LISTINGDL_TAGS"
)

// DefaultEnvFile is the dotenv file loaded from the working directory.
const DefaultEnvFile = ".env"

// envBinding ties an environment variable to the flag that overrides it.
type envBinding struct {
	env   string
	flag  string
	apply func(c *Config, value string) error
}

var envBindings = []envBinding{
	{
		env:  EnvBaseDir,
		flag: "base-dir",
		apply: func(c *Config, v string) error {
			c.BaseDir = v
			return nil
		},
	},
	{
		env:  EnvDelay,
		flag: "delay",
		apply: func(c *Config, v string) error {
			seconds, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", EnvDelay, err)
			}
			c.Delay = SecondsToDuration(seconds)
			return nil
		},
	},
	{
		env:  EnvUserAgent,
		flag: "user-agent",
		apply: func(c *Config, v string) error {
			c.UserAgent = v
			return nil
		},
	},
	{
		env:  EnvTags,
		flag: "tags",
		apply: func(c *Config, v string) error {
			c.TagsFile = v
			return nil
		},
	},
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment. Variables that are already set are left untouched.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies environment overrides. explicit reports whether the
// user set the corresponding flag, in which case the variable is ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool), explicit func(flag string) bool) error {
	for _, b := range envBindings {
		if explicit != nil && explicit(b.flag) {
			continue
		}
		value, ok := lookup(b.env)
		if !ok || value == "" {
			continue
		}
		if err := b.apply(c, value); err != nil {
			return err
		}
	}
	return nil
}
