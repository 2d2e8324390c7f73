// Package selection defines the committed drug and protein selections and the
// store that holds them.  A Selection counts as resolved for analysis only
// when its Payload is non-empty.
package selection

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two entity resolvers.
type Kind string

const (
	KindDrug    Kind = "drug"
	KindProtein Kind = "protein"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindDrug, KindProtein}

// ParseKind accepts "drug" or "protein" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindDrug:
		return KindDrug, nil
	case KindProtein:
		return KindProtein, nil
	default:
		return "", fmt.Errorf("selection: unknown kind %q", s)
	}
}

func (k Kind) String() string { return string(k) }

// Mode is the input mode of a resolver.
type Mode string

const (
	ModeSearch Mode = "search"
	ModeManual Mode = "manual"
)

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeManual {
		return ModeSearch
	}
	return ModeManual
}

// Selection is the committed result of a resolver.
//
// Payload holds the canonical SMILES for a drug or the amino-acid sequence for
// a protein.  The empty string means unresolved.  ID is the UniProt accession
// for proteins, "custom" after manual entry, and empty for drugs.
type Selection struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Name    string `json:"name" yaml:"name"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Payload string `json:"payload" yaml:"payload"`
}

// Resolved reports whether the selection carries a payload usable for
// analysis.
func (s Selection) Resolved() bool { return s.Payload != "" }

// Empty returns the reset selection for kind.
func Empty(kind Kind) Selection { return Selection{Kind: kind} }

// Suggestion is one transient search hit.  Drug suggestions carry only a
// Label; protein suggestions also carry the UniProt accession.
type Suggestion struct {
	Label     string `json:"label" yaml:"label"`
	Accession string `json:"accession,omitempty" yaml:"accession,omitempty"`
}

// Key is the argument passed to the detail lookup: the accession when present,
// otherwise the label.
func (s Suggestion) Key() string {
	if s.Accession != "" {
		return s.Accession
	}
	return s.Label
}

// Display renders the suggestion as shown in a list.
func (s Suggestion) Display() string {
	if s.Accession != "" {
		return s.Label + " (" + s.Accession + ")"
	}
	return s.Label
}

//Personal.AI order the ending
