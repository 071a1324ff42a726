package lang

import (
	"fmt"
	"sort"
)

// DetectionResult is the outcome of language detection: the winning language
// (or Unknown) plus the per-language file counts that produced it.
type DetectionResult struct {
	Language string
	Counts   map[string]int
}

// Detect picks the dominant language from a scanned inventory. An explicit,
// valid override always wins without scoring. Otherwise the language with the
// strict maximum file count wins; an empty inventory or a tie yields Unknown.
// Pure function of its inputs: no detector state, order-independent.
func Detect(records []FileRecord, override string) (DetectionResult, error) {
	counts := make(map[string]int)
	for _, rec := range records {
		if rec.Language != "" {
			counts[rec.Language]++
		}
	}

	if override != "" {
		if _, ok := ProfileFor(override); !ok {
			return DetectionResult{}, fmt.Errorf("unsupported language %q (supported: %v)", override, Known())
		}
		return DetectionResult{Language: override, Counts: counts}, nil
	}

	// Iterate in sorted order so the strict-max scan is deterministic even
	// though map iteration is not.
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	winner := Unknown
	best, tied := 0, false
	for _, id := range ids {
		switch {
		case counts[id] > best:
			winner, best, tied = id, counts[id], false
		case counts[id] == best && best > 0:
			tied = true
		}
	}
	if best == 0 || tied {
		return DetectionResult{Language: Unknown, Counts: counts}, nil
	}
	return DetectionResult{Language: winner, Counts: counts}, nil
}
