// config.go — Configuration loading with priority cascade.
// Priority: built-in defaults < ~/.mdsaad/config.json < environment
// variables. Later sources override earlier ones key by key.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all resolved configuration values the fabric reads.
type Config struct {
	UseProxy         bool
	ProxyURL         string // primary proxy base URL
	Language         string
	APIKeys          map[string]string // provider id -> credential
	SigningSecret    string            // per-install secret; empty disables signing
	CacheDir         string
	ConvertFavorites []string
	SkipNetworkCheck bool
	Debug            bool
	NoColor          bool
}

// envKeyVars maps environment variables onto provider credential slots.
// Environment always wins over the config file.
var envKeyVars = map[string]string{
	"OPENROUTER_API_KEY": "openrouter",
	"GROQ_API_KEY":       "groq",
	"DEEPSEEK_API_KEY":   "deepseek",
	"GEMINI_API_KEY":     "gemini",
	"WEATHERAPI_KEY":     "weatherapi",
	"OPENWEATHERMAP_KEY": "openweathermap",
}

// Defaults returns the base configuration.
func Defaults() Config {
	return Config{
		UseProxy: true,
		APIKeys:  make(map[string]string),
		Language: "en",
	}
}

// Dir returns the state directory, ~/.mdsaad.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".mdsaad"), nil
}

// Load builds the final configuration by applying the cascade.
func Load() (Config, error) {
	cfg := Defaults()

	dir, err := Dir()
	if err == nil {
		cfg.CacheDir = filepath.Join(dir, "cache")
		if err := loadFile(&cfg, filepath.Join(dir, "config.json")); err != nil {
			return cfg, err
		}
	}

	loadEnv(&cfg, os.Getenv)
	return cfg, nil
}

// fileConfig mirrors the on-disk JSON. Pointers distinguish "not set"
// from zero values so the file only overrides what it names.
type fileConfig struct {
	ProxyURL *string           `json:"proxyUrl"`
	UseProxy *bool             `json:"useProxy"`
	Language *string           `json:"language"`
	APIKeys  map[string]string `json:"apiKeys"`
	Signing  *string           `json:"signingSecret"`
	Convert  struct {
		Favorites []string `json:"favorites"`
	} `json:"convert"`
}

// loadFile merges ~/.mdsaad/config.json into cfg if it exists.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // missing config file is fine
		}
		return err
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.ProxyURL != nil {
		cfg.ProxyURL = *fc.ProxyURL
	}
	if fc.UseProxy != nil {
		cfg.UseProxy = *fc.UseProxy
	}
	if fc.Language != nil {
		cfg.Language = *fc.Language
	}
	if fc.Signing != nil {
		cfg.SigningSecret = *fc.Signing
	}
	for id, key := range fc.APIKeys {
		cfg.APIKeys[id] = key
	}
	if len(fc.Convert.Favorites) > 0 {
		cfg.ConvertFavorites = fc.Convert.Favorites
	}
	return nil
}

// loadEnv applies environment overrides. getenv is injected for tests.
func loadEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("MDSAAD_USE_PROXY"); v == "false" {
		cfg.UseProxy = false
	}
	if v := getenv("MDSAAD_PROXY_URL"); v != "" {
		cfg.ProxyURL = v
	}
	for envVar, providerID := range envKeyVars {
		if v := getenv(envVar); v != "" {
			cfg.APIKeys[providerID] = v
		}
	}
	if getenv("SKIP_NETWORK_CHECK") != "" {
		cfg.SkipNetworkCheck = true
	}
	if getenv("DEBUG") != "" {
		cfg.Debug = true
	}
	if getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}
}
