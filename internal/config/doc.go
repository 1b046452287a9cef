// Package config loads RangeBot configuration.
//
// Values are layered: built-in defaults, then an optional .env file, then an
// optional YAML file, then RANGEBOT_* environment variables. The merged result
// is validated before it is returned.
package config
