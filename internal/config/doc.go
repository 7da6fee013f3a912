// Package config loads the ratehub YAML configuration.
//
// ${VAR} references are expanded from the environment before parsing; an
// optional .env file can populate the environment first (see LoadEnvFile).
// Zero values are replaced by the defaults in defaults.go. A missing
// upstream.api_key is valid: the rate services then report themselves
// unavailable instead of failing startup.
package config
