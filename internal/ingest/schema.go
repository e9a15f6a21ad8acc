package ingest

import (
	"errors"
	"fmt"
	"strings"

	"aadhaarcli/pkg/contracts/domain"
)

// Canonical column names shared by every record kind
const (
	ColDate      = "date"
	ColState     = "state"
	ColDistrict  = "district"
	ColPincode   = "pincode"
	ColAge0To5   = "age_0_5"
	ColAge5To17  = "age_5_17"
	ColAge18Plus = "age_18_plus"
	ColAge17Plus = "age_17_plus"
)

// ErrNoInputFiles is returned when a dataset directory holds no readable table
var ErrNoInputFiles = errors.New("no input files")

// SchemaError reports required columns missing from an input table
type SchemaError struct {
	Kind    domain.RecordKind
	File    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s table %s missing required columns: %s",
		e.Kind, e.File, strings.Join(e.Missing, ", "))
}

// Schema describes the columns expected for one record kind
type Schema struct {
	Kind     domain.RecordKind
	Required []string
	Optional []string
	aliases  map[string]string
}

var (
	enrollmentSchema = Schema{
		Kind:     domain.KindEnrollment,
		Required: []string{ColDate, ColState, ColDistrict, ColAge0To5, ColAge5To17, ColAge18Plus},
		Optional: []string{ColPincode},
		aliases: map[string]string{
			"age_18_greater": ColAge18Plus,
		},
	}

	updateAliases = map[string]string{
		"demo_age_5_17": ColAge5To17,
		"bio_age_5_17":  ColAge5To17,
		"demo_age_17_":  ColAge17Plus,
		"bio_age_17_":   ColAge17Plus,
		ColAge18Plus:    ColAge17Plus,
	}

	demographicSchema = Schema{
		Kind:     domain.KindDemographic,
		Required: []string{ColDate, ColState, ColDistrict, ColAge5To17, ColAge17Plus},
		Optional: []string{ColPincode},
		aliases:  updateAliases,
	}

	biometricSchema = Schema{
		Kind:     domain.KindBiometric,
		Required: []string{ColDate, ColState, ColDistrict, ColAge5To17, ColAge17Plus},
		Optional: []string{ColPincode},
		aliases:  updateAliases,
	}
)

// SchemaFor returns the schema of a record kind
func SchemaFor(kind domain.RecordKind) (Schema, error) {
	switch kind {
	case domain.KindEnrollment:
		return enrollmentSchema, nil
	case domain.KindDemographic:
		return demographicSchema, nil
	case domain.KindBiometric:
		return biometricSchema, nil
	}
	return Schema{}, fmt.Errorf("unknown record kind %q", kind)
}

// Canonical maps a raw header cell to its canonical column name.
// Unknown headers are returned normalized with ok=false.
func (s Schema) Canonical(header string) (string, bool) {
	h := normalizeHeader(header)
	if alias, ok := s.aliases[h]; ok {
		return alias, true
	}
	for _, c := range s.Required {
		if c == h {
			return h, true
		}
	}
	for _, c := range s.Optional {
		if c == h {
			return h, true
		}
	}
	return h, false
}

// Missing returns the required columns absent from columns
func (s Schema) Missing(columns []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	var missing []string
	for _, c := range s.Required {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// normalizeHeader lower-cases and trims a header cell, dropping a UTF-8 BOM
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}
