// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A .env file next to the working directory is loaded first, so secrets can live there
// instead of in the YAML. Credentials left empty fall back to APCA_API_KEY_ID and
// APCA_API_SECRET_KEY.
package config
