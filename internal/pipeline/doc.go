// Package pipeline computes filterbank features for every prepared partition
// and writes the resulting cut manifests.
//
// Run discovers partitions in the source manifest directory, skips the ones
// whose cut manifest already exists in the output directory, joins
// recordings with supervisions, applies speed perturbation to training
// partitions and fans the cuts out over the injected executor. A partition
// only gets a manifest when every one of its jobs finished; a failed
// partition does not stop the others and is reported in the aggregated
// error returned by Run.
package pipeline
