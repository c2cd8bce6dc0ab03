package emulator

import (
	"fmt"
	"strings"
)

// Quirks selects legacy interpreter behaviours. The zero value is the
// modern behaviour most ROMs expect.
type Quirks struct {
	ShiftInPlace        bool // 8XY6/8XYE shift VX instead of VY
	KeepFlagOnLogic     bool // 8XY1/2/3 leave VF untouched
	StaticIndex         bool // FX55/FX65 leave I untouched
	NoIndexOverflowFlag bool // FX1E leaves VF untouched
}

var quirkNames = []struct {
	name string
	set  func(*Quirks) *bool
}{
	{"shift-in-place", func(q *Quirks) *bool { return &q.ShiftInPlace }},
	{"keep-flag-on-logic", func(q *Quirks) *bool { return &q.KeepFlagOnLogic }},
	{"static-index", func(q *Quirks) *bool { return &q.StaticIndex }},
	{"no-index-overflow-flag", func(q *Quirks) *bool { return &q.NoIndexOverflowFlag }},
}

// ParseQuirks reads a comma separated list of quirk names.
func ParseQuirks(s string) (Quirks, error) {
	var q Quirks
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		found := false
		for _, qn := range quirkNames {
			if qn.name == name {
				*qn.set(&q) = true
				found = true
				break
			}
		}
		if !found {
			return Quirks{}, fmt.Errorf("unknown quirk %q", name)
		}
	}
	return q, nil
}

func (q Quirks) String() string {
	var names []string
	for _, qn := range quirkNames {
		if *qn.set(&q) {
			names = append(names, qn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
