// Package fbank computes log-mel filterbank features compatible with the
// Kaldi defaults: 25 ms povey-windowed frames every 10 ms, pre-emphasis,
// DC removal, and a triangular mel bank over the power spectrum.
//
// Frames are centered on multiples of the frame shift with reflected edges,
// so a signal of N samples yields (N + shift/2) / shift frames.
package fbank
