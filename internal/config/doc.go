// Package config loads, normalizes, and validates asrprep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// corpus preparer and the feature pipeline need: manifest and feature
// directories, fbank parameters, speed perturbation, executor sizing, and the
// cache backend.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors. CLI
// flags are layered on top of the loaded values by the commands themselves.
package config
