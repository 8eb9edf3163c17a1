package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	Mainnet = "mainnet"
	Testnet = "testnet"

	envDir = "env"
)

// EnvFilePath returns the dotenv file holding settings for the given network
// environment, e.g. env/.env.validator.mainnet.
func EnvFilePath(environment string) (string, error) {
	switch strings.ToLower(environment) {
	case Mainnet, Testnet:
		return filepath.Join(envDir, ".env.validator."+strings.ToLower(environment)), nil
	}
	return "", fmt.Errorf("unknown environment %q, expected %s or %s", environment, Mainnet, Testnet)
}

// LoadEnvironment loads the dotenv file for environment into the process
// environment. Values already set in the environment take precedence.
func LoadEnvironment(environment string) (string, error) {
	path, err := EnvFilePath(environment)
	if err != nil {
		return "", err
	}
	if err := godotenv.Load(path); err != nil {
		return path, fmt.Errorf("load %s: %w", path, err)
	}
	return path, nil
}
