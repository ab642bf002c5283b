package eligibility

import (
	"regexp"
	"strconv"
	"strings"
)

const OccupationFarmer = "Farmer"

var hectarePattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Profile is the part of a farmer profile the rules look at.
type Profile struct {
	Occupation  string
	LandHolding string
}

func (p Profile) Hectares() float64 {
	return ParseHectares(p.LandHolding)
}

// Admits reports whether the profile meets the scheme's thresholds.
func (s Scheme) Admits(p Profile) bool {
	if p.Hectares() < s.MinHectares {
		return false
	}
	if len(s.Occupations) == 0 {
		return true
	}
	occupation := strings.TrimSpace(p.Occupation)
	for _, o := range s.Occupations {
		if strings.EqualFold(strings.TrimSpace(o), occupation) {
			return true
		}
	}
	return false
}

// Evaluate returns every admitting scheme in catalog order. The result may be empty.
func (c *Catalog) Evaluate(p Profile) []Scheme {
	var out []Scheme
	for _, s := range c.schemes {
		if s.Admits(p) {
			out = append(out, s)
		}
	}
	return out
}

// ParseHectares reads the first decimal number in a land-holding string.
// Devanagari digits are accepted. Unparseable input yields 0.
func ParseHectares(raw string) float64 {
	normalized := normalizeDigits(strings.TrimSpace(raw))
	match := hectarePattern.FindString(normalized)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

func normalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '०' && r <= '९' {
			return '0' + (r - '०')
		}
		return r
	}, s)
}
