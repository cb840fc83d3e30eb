// Package analysis runs the speech analyses requested for one recording and
// turns their outcomes into typed reports.
package analysis

import (
	"fmt"
	"strings"
)

// Kind names one analysis module. Its string form is the key used in
// responses.
type Kind string

const (
	KindIntensity    Kind = "intensity"
	KindSpeechRate   Kind = "speechrate"
	KindIntonation   Kind = "intonation"
	KindArticulation Kind = "articulation"
)

// AllKinds lists every module in response order.
var AllKinds = []Kind{KindIntensity, KindSpeechRate, KindIntonation, KindArticulation}

func (k Kind) String() string { return string(k) }

// ParseKind accepts a module name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown analysis module %q", s)
}
