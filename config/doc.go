// Package config loads and validates the dolibarr-mcp configuration.
//
// Priority, highest first:
//  1. Process environment (DOLIBARR_URL, CACHE_BACKEND, ...)
//  2. The .env file, which never overrides a variable already set
//  3. config.yaml or config.toml
//  4. Built-in defaults
//
// Secret-bearing values go through a secret.Resolver, so they may be given
// as ${VAR} or as secretref:env:NAME / secretref:file:/path.
//
// Config also derives the settings of the packages it feeds: Upstream for
// the Dolibarr client, AuthMiddleware for HTTP authentication and Observe
// for telemetry.
package config
