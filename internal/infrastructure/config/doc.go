// Package config loads and validates Luma Core configuration.
//
// Configuration comes from a YAML file with hardcoded defaults underneath
// and LUMA_* environment variable overrides on top. The loaded Config is
// passed explicitly into component constructors; there is no package-level
// configuration state.
package config
