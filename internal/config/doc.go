// Package config provides configuration loading and validation for the head tracking panner.
// Built-in defaults are overlaid by an optional YAML file and then by HEADPAN_* environment
// variables, optionally read from a .env file.
package config
