package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvRPCURL    = "RPC_URL"
	EnvInfuraKey = "INFURA_API_KEY"
	EnvNetwork   = "NETWORK" // mainnet, sepolia, holesky
	EnvSender    = "SIM_SENDER"
)

// LoadEnv loads environment variables from .env file
func LoadEnv() error {
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
