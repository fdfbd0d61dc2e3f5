package normalizers

import "strings"

var stateCodes = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR", "california": "CA",
	"colorado": "CO", "connecticut": "CT", "delaware": "DE", "florida": "FL", "georgia": "GA",
	"hawaii": "HI", "idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV", "new hampshire": "NH", "new jersey": "NJ",
	"new mexico": "NM", "new york": "NY", "north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
	"district of columbia": "DC", "puerto rico": "PR",
}

var stateNames = func() map[string]string {
	names := make(map[string]string, len(stateCodes))
	for name, code := range stateCodes {
		names[code] = name
	}
	return names
}()

// NormalizeState maps a 2-letter abbreviation or a full state name
// (case-insensitive) to its USPS code. Unknown input comes back trimmed and
// upper-cased, so comparison degrades to exact string equality.
func NormalizeState(s string) string {
	clean := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	clean = strings.TrimSuffix(clean, ".")
	if clean == "" {
		return ""
	}

	if code, ok := stateCodes[clean]; ok {
		return code
	}

	upper := strings.ToUpper(clean)
	if _, ok := stateNames[upper]; ok {
		return upper
	}

	return strings.ToUpper(strings.TrimSpace(s))
}

// FullStateName returns the title-cased name for a state, or the input when
// the state is unknown.
func FullStateName(s string) string {
	name, ok := stateNames[NormalizeState(s)]
	if !ok {
		return s
	}
	parts := strings.Fields(name)
	for i, p := range parts {
		if p == "of" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// StatesEqual reports whether two non-empty inputs name the same state.
func StatesEqual(a, b string) bool {
	na, nb := NormalizeState(a), NormalizeState(b)
	return na != "" && na == nb
}
