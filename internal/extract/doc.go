// Package extract runs one feature-extraction job: decode every cut's audio,
// compute fbank features, append them to the job's own archive, and return
// the cuts with feature references attached.
//
// A cut that cannot be decoded or is too short is reported as a failure and
// left out of the result. Archive write errors fail the whole job.
package extract
