package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAttributionDedupesAndTitleCases(t *testing.T) {
	attr := ResolveAttribution("John", "John, JOHN, jane feat. Bob")

	assert.Equal(t, []string{"John", "Jane", "Bob"}, attr.Roster)
	assert.Equal(t, "John x Jane x Bob", attr.Display)
	assert.True(t, attr.Collaborative)
	assert.Equal(t, []string{"Jane", "Bob"}, attr.Others())
}

func TestResolveAttributionSeparators(t *testing.T) {
	tests := []struct {
		name       string
		additional string
		want       []string
	}{
		{name: "empty", additional: "", want: []string{"Main"}},
		{name: "comma", additional: "ann,bob", want: []string{"Main", "Ann", "Bob"}},
		{name: "ampersand", additional: "ann & bob", want: []string{"Main", "Ann", "Bob"}},
		{name: "standalone x", additional: "ann x bob", want: []string{"Main", "Ann", "Bob"}},
		{name: "x inside word kept", additional: "Alex Xander", want: []string{"Main", "Alex Xander"}},
		{name: "ft", additional: "ann ft bob", want: []string{"Main", "Ann", "Bob"}},
		{name: "ft dot", additional: "ann ft. bob", want: []string{"Main", "Ann", "Bob"}},
		{name: "featuring", additional: "ann FEATURING bob", want: []string{"Main", "Ann", "Bob"}},
		{name: "feat not inside word", additional: "feather", want: []string{"Main", "Feather"}},
		{name: "drops primary", additional: "MAIN, ann", want: []string{"Main", "Ann"}},
		{name: "collapses spaces", additional: "  mary   jane  ", want: []string{"Main", "Mary Jane"}},
		{name: "only separators", additional: ", & x", want: []string{"Main"}},
		{name: "x before hyphen kept", additional: "DJ X-Ray", want: []string{"Main", "Dj X-Ray"}},
		{name: "x after non-ascii letter kept", additional: "Zoëx, Bob", want: []string{"Main", "Zoëx", "Bob"}},
		{name: "feat before hyphen kept", additional: "Mr. Feat-Man", want: []string{"Main", "Mr. Feat-Man"}},
		{name: "feat dot joined to name", additional: "ann feat.bob", want: []string{"Main", "Ann", "Bob"}},
		{name: "repeated separators", additional: "ann x x bob ft. & cat", want: []string{"Main", "Ann", "Bob", "Cat"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			attr := ResolveAttribution("Main", tc.additional)
			assert.Equal(t, tc.want, attr.Roster)
			assert.Equal(t, len(tc.want) > 1, attr.Collaborative)
		})
	}
}

func TestResolveAttributionRosterInvariant(t *testing.T) {
	inputs := [][2]string{
		{"DJ Shadow", "dj shadow & Cut Chemist, CUT CHEMIST"},
		{"a", "A x b x B ft c feat. C"},
		{"", "x"},
		{"Solo", ""},
	}

	for _, in := range inputs {
		attr := ResolveAttribution(in[0], in[1])
		require.NotEmpty(t, attr.Roster)
		assert.Equal(t, strings.TrimSpace(in[0]), attr.Roster[0])

		seen := map[string]bool{}
		for _, name := range attr.Roster {
			key := strings.ToLower(name)
			assert.Falsef(t, seen[key], "duplicate %q in %v", name, attr.Roster)
			seen[key] = true
		}
	}
}

func TestStructuredAttribution(t *testing.T) {
	attr := StructuredAttribution("owner", []string{"ann", "Owner", "ANN", "bob"})
	assert.Equal(t, []string{"owner", "ann", "bob"}, attr.Roster)
	assert.Equal(t, "owner x ann x bob", attr.Display)

	solo := StructuredAttribution("owner", nil)
	assert.Equal(t, "owner", solo.Display)
	assert.False(t, solo.Collaborative)
}
