// Package config loads, validates, and persists the bundle configuration
// shared by all pipeline stages.
//
// A config file enumerates the recognized packaging options: resource
// mappings, exclusion prefixes, signing and imaging settings, permission
// bits, and the readiness-poll policy. YAML is the primary format; .json
// and .jsonc files are accepted too, with comments stripped before decode.
package config
