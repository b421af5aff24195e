// Package config loads typed configuration structs from the process
// environment.
//
// A `.env` file in the working directory is read once (when present) through
// github.com/joho/godotenv, then each struct is populated by
// github.com/caarlos0/env/v11 according to its `env` / `envDefault` tags.
// Parsed values are cached per struct type, so every package can call Load for
// its own Config without re-reading the environment:
//
//	var cfg billing.StripeConfig
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// Reset clears the cache; it exists for tests that mutate the environment.
package config
