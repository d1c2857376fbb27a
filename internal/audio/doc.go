// Package audio probes and decodes the WAV and FLAC assets of a corpus into
// normalized mono samples, and applies speed perturbation.
package audio
