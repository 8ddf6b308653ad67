// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package event

// Reading is the decoded content of one notification, as seen by conditions.
// Only the fields relevant to the notification kind are set.
type Reading struct {
	// Flags holds binary sensor states in condition order
	// (bumpers: left, right; touch: front-left, front-right, back-left, back-right)
	Flags []bool

	// Colors holds the color ID of every color sensor cell
	Colors []uint8

	// Light is the light-transition state code
	Light uint8
}

// Condition decides whether a handler fires for a reading
type Condition interface {
	Match(r Reading) bool
}

// Always fires on every notification of its kind
var Always Condition = always{}

type always struct{}

func (always) Match(Reading) bool { return true }

// Flags is a condition over binary sensors, aligned with Reading.Flags.
//
// An empty condition fires whenever any sensor is active. Otherwise it fires
// when at least one position declared true is also sensed true, so a
// condition naming both bumpers fires on either bumper alone.
type Flags []bool

// Match implements Condition
func (c Flags) Match(r Reading) bool {
	if len(c) == 0 {
		for _, active := range r.Flags {
			if active {
				return true
			}
		}
		return false
	}

	n := min(len(c), len(r.Flags))
	for i := 0; i < n; i++ {
		if c[i] && r.Flags[i] {
			return true
		}
	}
	return false
}

// ColorSkip marks a zone whose color does not matter
const ColorSkip uint8 = 0xFF

// Colors is a per-zone color condition. The sensor cells are split into
// len(c) equal zones; each zone's color is the most common cell color in it.
// The condition fires if any zone that is not ColorSkip matches.
// An empty condition fires on every scan.
type Colors []uint8

// Match implements Condition
func (c Colors) Match(r Reading) bool {
	if len(c) == 0 {
		return true
	}
	zones := ZoneColors(r.Colors, len(c))
	for i, want := range c {
		if want != ColorSkip && zones[i] == want {
			return true
		}
	}
	return false
}

// ZoneColors splits cells into n zones and returns the dominant color of each.
// Ties go to the lowest color ID. Zones with no cells report ColorSkip.
func ZoneColors(cells []uint8, n int) []uint8 {
	zones := make([]uint8, n)
	for i := range zones {
		lo, hi := i*len(cells)/n, (i+1)*len(cells)/n
		zones[i] = dominant(cells[lo:hi])
	}
	return zones
}

func dominant(cells []uint8) uint8 {
	if len(cells) == 0 {
		return ColorSkip
	}

	var counts [256]int
	for _, c := range cells {
		counts[c]++
	}

	best := 0
	for id := 1; id < len(counts); id++ {
		if counts[id] > counts[best] {
			best = id
		}
	}
	return uint8(best)
}

// Light fires when the reported light state equals the declared state exactly
type Light uint8

// Match implements Condition
func (c Light) Match(r Reading) bool {
	return r.Light == uint8(c)
}
