// Package routeid parses and renders WSDOT route identifiers.
//
// Two spellings appear in event tables: the LRS form used by the route
// layer ("005", "005co", "005R1VANCN", "529SPEVERETd") and the label form
// used by humans ("I-5", "US-101", "SR 8"). Both reduce to the same
// canonical RouteID; rendering back to a string is controlled by a
// SuffixPolicy.
package routeid

import (
	"fmt"
	"regexp"
	"strings"
)

// Direction is the travel direction encoded by a route ID suffix.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionIncreasing
	DirectionDecreasing
)

// String returns the suffix character for the direction, or "".
func (d Direction) String() string {
	switch d {
	case DirectionIncreasing:
		return "i"
	case DirectionDecreasing:
		return "d"
	}
	return ""
}

// SuffixPolicy controls which direction suffixes Render may append.
// It replaces the bitflag suffix configuration of the original toolbox
// with a closed set, so invalid combinations cannot be constructed.
type SuffixPolicy int

const (
	// SuffixNone renders the bare mainline+RRT+RRQ string.
	SuffixNone SuffixPolicy = iota
	// SuffixIncreasing permits only the "i" suffix.
	SuffixIncreasing
	// SuffixDecreasing permits only the "d" suffix.
	SuffixDecreasing
	// SuffixBoth permits either suffix.
	SuffixBoth
)

func (p SuffixPolicy) permitsIncreasing() bool {
	return p == SuffixIncreasing || p == SuffixBoth
}

func (p SuffixPolicy) permitsDecreasing() bool {
	return p == SuffixDecreasing || p == SuffixBoth
}

// RouteID is a parsed WSDOT route identifier.
type RouteID struct {
	// SR is the 3-digit mainline route number, zero-padded.
	SR string
	// RRT is the related-route-type code ("CO", "SP", ...), or "".
	RRT string
	// RRQ is the related-route qualifier (up to 6 alphanumerics).
	// Only meaningful when RRT is set.
	RRQ string
	// Direction records an explicit i/d suffix on the input, if any.
	Direction Direction
}

// Bare returns the unsuffixed route ID string (SR+RRT+RRQ).
func (r RouteID) Bare() string {
	return r.SR + r.RRT + r.RRQ
}

// String renders the ID with its own direction suffix, if any.
func (r RouteID) String() string {
	return r.Bare() + r.Direction.String()
}

// ParseError reports a route ID string that matches neither the LRS
// grammar nor the label grammar. It is a per-row diagnostic, never a
// reason to abort a batch.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed route id: %q", e.Input)
}

// lrsRe matches the LRS form: 3-digit mainline, optional RRT from the
// fixed WSDOT set, optional qualifier, optional direction suffix.
// The qualifier is lazy so a trailing I or D reads as direction.
var lrsRe = regexp.MustCompile(
	`^(\d{3})(?:(AR|CO|F[ST]|PR|RL|SP|TB|TR|LX|[CFH][DI]|[PQRS][1-9]|UC)([A-Z0-9]{0,6}?))?([ID]?)$`)

// labelRe matches highway label forms such as I-5, US-101, WA-8 or "SR 8".
var labelRe = regexp.MustCompile(`^[A-Za-z]+[-\s](\d{0,3})$`)

// Parse converts a raw route ID string in either surface form into a
// RouteID. Matching is case-insensitive. Returns *ParseError when the
// string fits neither grammar.
func Parse(raw string) (RouteID, error) {
	trimmed := strings.TrimSpace(raw)

	if m := lrsRe.FindStringSubmatch(strings.ToUpper(trimmed)); m != nil {
		id := RouteID{SR: m[1], RRT: m[2], RRQ: m[3]}
		switch m[4] {
		case "I":
			id.Direction = DirectionIncreasing
		case "D":
			id.Direction = DirectionDecreasing
		}
		return id, nil
	}

	if m := labelRe.FindStringSubmatch(trimmed); m != nil {
		sr := m[1]
		for len(sr) < 3 {
			sr = "0" + sr
		}
		return RouteID{SR: sr}, nil
	}

	return RouteID{}, &ParseError{Input: raw}
}

// Render converts a RouteID back to its canonical string under the given
// policy. A "d" suffix is appended only when the parsed direction was
// explicitly decreasing and the policy permits it; otherwise "i" is
// appended whenever the policy permits it. Decreasing must be explicit;
// increasing is the fallback. The rest of the system assumes exactly
// this convention.
func Render(id RouteID, policy SuffixPolicy) string {
	bare := id.Bare()
	if policy == SuffixNone {
		return bare
	}
	if id.Direction == DirectionDecreasing && policy.permitsDecreasing() {
		return bare + "d"
	}
	if policy.permitsIncreasing() {
		return bare + "i"
	}
	return bare
}

// Normalize parses raw and renders it under policy in one step.
func Normalize(raw string, policy SuffixPolicy) (string, error) {
	id, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return Render(id, policy), nil
}

// Merge normalizes an unsuffixed route ID and folds a separate direction
// column value into the suffix. Any direction value beginning with "d" or
// "D" means decreasing; everything else (including empty) falls back to
// increasing when the policy permits it. An empty route ID is an error.
func Merge(raw, direction string, policy SuffixPolicy) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("route id is null")
	}
	id, err := Parse(raw)
	if err != nil {
		return "", err
	}
	if len(direction) > 0 && (direction[0] == 'd' || direction[0] == 'D') {
		id.Direction = DirectionDecreasing
	} else {
		id.Direction = DirectionNone
	}
	return Render(id, policy), nil
}
