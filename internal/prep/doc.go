// Package prep holds the error taxonomy and context annotations shared by the
// corpus preparer, the feature pipeline, and the CLI.
//
// Errors are tagged with one of the exported sentinel markers so callers can
// decide with errors.Is whether a failure is fatal for the process, fatal for
// a single partition, or a per-item problem that was already logged.
package prep
