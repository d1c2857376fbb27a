package manifest

import (
	"sort"
	"strings"
)

// Kind names one manifest family in a file name.
type Kind string

const (
	KindRecordings   Kind = "recordings"
	KindSupervisions Kind = "supervisions"
	KindCuts         Kind = "cuts"
)

// PartAll is the partition name used for the full prepared corpus.
const PartAll = "all"

// Naming builds and parses manifest file names of the form
// <prefix>_<kind>_<part>.<suffix>.
type Naming struct {
	Prefix string
	Suffix string
}

// File returns the manifest file name for kind and part.
func (n Naming) File(kind Kind, part string) string {
	return n.Prefix + "_" + string(kind) + "_" + part + "." + n.Suffix
}

// FeatureDir returns the feature store directory name for part.
func (n Naming) FeatureDir(part string) string {
	return n.Prefix + "_feats_" + part
}

// Parse extracts the kind and part from a manifest file name.
func (n Naming) Parse(name string) (Kind, string, bool) {
	head := n.Prefix + "_"
	tail := "." + n.Suffix
	if !strings.HasPrefix(name, head) || !strings.HasSuffix(name, tail) {
		return "", "", false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, head), tail)
	for _, kind := range []Kind{KindRecordings, KindSupervisions, KindCuts} {
		rest, ok := strings.CutPrefix(middle, string(kind)+"_")
		if ok && rest != "" {
			return kind, rest, true
		}
	}
	return "", "", false
}

// Discovery is the result of scanning a listing for partitions.
type Discovery struct {
	// Parts have both a recordings and a supervisions manifest.
	Parts []string
	// Incomplete parts are missing one of the two.
	Incomplete []string
}

// Discover groups manifest names into partitions. Parts are returned in
// lexical order.
func (n Naming) Discover(names []string) Discovery {
	recordings := map[string]bool{}
	supervisions := map[string]bool{}
	for _, name := range names {
		kind, part, ok := n.Parse(name)
		if !ok {
			continue
		}
		switch kind {
		case KindRecordings:
			recordings[part] = true
		case KindSupervisions:
			supervisions[part] = true
		}
	}

	var out Discovery
	for part := range recordings {
		if supervisions[part] {
			out.Parts = append(out.Parts, part)
		} else {
			out.Incomplete = append(out.Incomplete, part)
		}
	}
	for part := range supervisions {
		if !recordings[part] {
			out.Incomplete = append(out.Incomplete, part)
		}
	}
	sort.Strings(out.Parts)
	sort.Strings(out.Incomplete)
	return out
}
