package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"dashes", "555-123-4567", "5551234567"},
		{"parens and spaces", "(555) 123-4567", "5551234567"},
		{"country code", "+1 (555) 123-4567", "5551234567"},
		{"eleven digits without leading one", "25551234567", ""},
		{"too short", "123-4567", ""},
		{"too long", "555-123-4567-89", ""},
		{"letters", "call me", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	inputs := []string{"555-123-4567", "1-555-123-4567", "(619) 555-0100", "12", "", "15551234567"}
	for _, in := range inputs {
		once := NormalizePhone(in)
		assert.Equal(t, once, NormalizePhone(once), "input %q", in)
	}
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "(619) 555-0100", FormatPhone("6195550100"))
	assert.Equal(t, "(619) 555-0100", FormatPhone("+1 619.555.0100"))
	assert.Equal(t, "555-0100", FormatPhone("555-0100"))
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"123 Main St", "123 main st"},
		{"123 Main Street", "123 main st"},
		{"123  MAIN st.", "123 main st"},
		{"456 North Oak Avenue, Suite 200", "456 n oak ave ste 200"},
		{"789 Elm Blvd #4B", "789 elm blvd apt 4b"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.input))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "salvatore sardina", NormalizeName("  Salvatore   SARDINA "))
	assert.Equal(t, "john smith", NormalizeName("John Smith, Jr."))
	assert.Equal(t, "jose nunez", NormalizeName("José Núñez"))
	assert.Equal(t, "mary obrien", NormalizeName("Mary O'Brien"))
}

func TestNormalizeBusinessName(t *testing.T) {
	assert.Equal(t, "acme plumbing", NormalizeBusinessName("Acme Plumbing LLC"))
	assert.Equal(t, "acme plumbing", NormalizeBusinessName("ACME Plumbing, Inc."))
	assert.Equal(t, "smith heating", NormalizeBusinessName("Smith & Heating Co"))
	assert.Equal(t, "llc", NormalizeBusinessName("LLC"))
}

func TestNormalizeState(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"CA", "CA"},
		{"ca", "CA"},
		{"California", "CA"},
		{"  new   york ", "NY"},
		{"District of Columbia", "DC"},
		{"Atlantis", "ATLANTIS"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeState(tt.input))
		})
	}
}

func TestFullStateName(t *testing.T) {
	assert.Equal(t, "New York", FullStateName("ny"))
	assert.Equal(t, "District of Columbia", FullStateName("DC"))
	assert.Equal(t, "Atlantis", FullStateName("Atlantis"))
}

func TestStatesEqual(t *testing.T) {
	assert.True(t, StatesEqual("TX", "texas"))
	assert.False(t, StatesEqual("TX", "OK"))
	assert.False(t, StatesEqual("", ""))
}

func TestNormalizeZipCode(t *testing.T) {
	assert.Equal(t, "92101", NormalizeZipCode("92101"))
	assert.Equal(t, "92101", NormalizeZipCode("92101-1234"))
	assert.Equal(t, "", NormalizeZipCode("921"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "5551234567", ApplyChain(" 555.123.4567 ", "trim", "nphone"))
	assert.Equal(t, "unchanged", Apply("unchanged", "does_not_exist"))

	fn, ok := Get("nstate")
	assert.True(t, ok)
	assert.Equal(t, "OR", fn("oregon"))
}
