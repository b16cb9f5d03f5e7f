package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

const defaultEnvFile = ".env"

// Credentials is an exchange API key pair.
type Credentials struct {
	APIKey    string
	APISecret string
}

// LoadEnv loads variables from path into the process environment without
// overriding ones already set. An empty path means ./.env, which may be absent.
func LoadEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return nil
		}
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s", path)
	}

	return nil
}

// CredentialsFor reads the API keys of platform from the environment.
// The simulator needs none.
func CredentialsFor(platform string) (Credentials, error) {
	if platform == PlatformSimulate {
		return Credentials{}, nil
	}

	prefix := strings.ToUpper(platform)
	creds := Credentials{
		APIKey:    os.Getenv(prefix + "_API_KEY"),
		APISecret: os.Getenv(prefix + "_API_SECRET"),
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return Credentials{}, errors.Wrapf(domain.ErrConfiguration,
			"%s_API_KEY and %s_API_SECRET environment variables must be set", prefix, prefix)
	}

	return creds, nil
}
