package cleaning

import (
	"regexp"
	"strings"
	"unicode"
)

// StateCorrections collapses known misspellings and legacy state names onto
// their canonical form. Keys are in title case.
var StateCorrections = map[string]string{
	"West Bangal":     "West Bengal",
	"Westbengal":      "West Bengal",
	"West Bengli":     "West Bengal",
	"Wb":              "West Bengal",
	"Jammu&Kashmir":   "Jammu And Kashmir",
	"Jammu & Kashmir": "Jammu And Kashmir",
	"Nct Of Delhi":    "Delhi",

	"Andaman & Nicobar Islands": "Andaman And Nicobar Islands",
	"Dadra & Nagar Haveli":      "Dadra And Nagar Haveli",
	"Daman & Diu":               "Daman And Diu",

	"The Dadra And Nagar Haveli And Daman And Diu": "Dadra And Nagar Haveli",

	"Orissa":      "Odisha",
	"Pondicherry": "Puducherry",
	"Uttaranchal": "Uttarakhand",
}

// DistrictCorrections does the same for district names
var DistrictCorrections = map[string]string{
	"Yamunanagar":  "Yamuna Nagar",
	"Karimnagar":   "Karim Nagar",
	"Ahmednagar":   "Ahmed Nagar",
	"Mahbubnagar":  "Mahabub Nagar",
	"Mahabubnagar": "Mahabub Nagar",

	"Chamrajanagar":      "Chamarajanagar",
	"Villupuram":         "Viluppuram",
	"Thiruvananthapuram": "Thiruvananthpuram",

	"South 24 Parganas": "South Twenty Four Parganas",
	"North 24 Parganas": "North Twenty Four Parganas",
}

// BlockedStates are district names and null markers that leak into the state column
var BlockedStates = map[string]bool{
	"Darbhanga":    true,
	"Puttenahalli": true,
	"Nan":          true,
}

var numericState = regexp.MustCompile(`^\d+$`)

// TitleCase upper-cases every letter that follows a non-letter and
// lower-cases the rest, so "jammu&kashmir" becomes "Jammu&Kashmir".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// NormalizeName trims and title-cases a geographic name
func NormalizeName(s string) string {
	return TitleCase(strings.TrimSpace(s))
}

// IsBlockedState reports whether a normalized state value is not a real state
func IsBlockedState(state string) bool {
	return numericState.MatchString(state) || BlockedStates[state]
}

// CanonicalState applies the state lookup table to a normalized name
func CanonicalState(state string) string {
	if fixed, ok := StateCorrections[state]; ok {
		return fixed
	}
	return state
}

// CanonicalDistrict applies the district lookup table to a normalized name
func CanonicalDistrict(district string) string {
	if fixed, ok := DistrictCorrections[district]; ok {
		return fixed
	}
	return district
}

// NormalizePincode trims a pincode and strips the ".0" left by float exports
func NormalizePincode(p string) string {
	return strings.TrimSuffix(strings.TrimSpace(p), ".0")
}
