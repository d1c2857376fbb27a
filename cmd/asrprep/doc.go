// Package main hosts the asrprep CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into corpus
// preparation and feature extraction runs. It centralizes configuration
// resolution and logger construction so subcommands only translate flags
// into calls on the internal packages.
package main
