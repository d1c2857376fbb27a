// Package cutset builds cuts from recording and supervision manifests and
// derives new cut collections from them: speed-perturbed copies, positional
// train/test splits, and contiguous job chunks.
//
// Every function returns new slices and never mutates its inputs.
package cutset
