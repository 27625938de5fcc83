// Package config provides configuration management for the manimatic service.
//
// Configuration is loaded from environment variables using the env package.
// All configuration values have sensible defaults for development use, except
// the LLM API keys, of which at least one must be set.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
