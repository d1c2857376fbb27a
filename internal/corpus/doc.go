// Package corpus turns an AudioMNIST-layout corpus into recording and
// supervision manifests.
//
// The expected layout is <root>/data/<speaker>/<digit>_<speaker>_<index>.wav
// with an optional <root>/data/audioMNIST_meta.txt holding per-speaker
// metadata. Results are committed to the output cache and reused on later
// runs when both manifests are present.
package corpus
