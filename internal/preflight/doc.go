// Package preflight provides readiness checks for the filesystem paths and
// worker binaries asrprep depends on.
//
// The prepare and fbank commands call RunAll before touching any output so a
// missing corpus, an unwritable destination or a nearly full disk is
// reported up front instead of after a partition has been half extracted.
// Each check returns a Result; Err folds failures into a configuration error.
package preflight
