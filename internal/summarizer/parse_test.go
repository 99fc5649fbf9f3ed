package summarizer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseFreeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Artifact
	}{
		{
			name: "all fields",
			in:   "Name: X\nDescription: Y\nTags: p, q",
			want: Artifact{Name: "X", Description: "Y", Tags: []string{"p", "q"}},
		},
		{
			name: "missing tags",
			in:   "Name: Login flow\nDescription: Adds GitHub OAuth.",
			want: Artifact{Name: "Login flow", Description: "Adds GitHub OAuth.", Tags: []string{"untagged"}},
		},
		{
			name: "empty reply",
			in:   "",
			want: Artifact{Name: "Untitled Changes", Description: "No description provided.", Tags: []string{"untagged"}},
		},
		{
			name: "surrounding chatter and indentation",
			in:   "Sure! Here is the summary:\n\n   Name:  Cache  \n\tDescription: TTL cache added.\nTags: cache,,  perf ,\nThanks!",
			want: Artifact{Name: "Cache", Description: "TTL cache added.", Tags: []string{"cache", "perf"}},
		},
		{
			name: "prefixes are case sensitive",
			in:   "name: lower\nDESCRIPTION: upper\ntags: a",
			want: Artifact{Name: "Untitled Changes", Description: "No description provided.", Tags: []string{"untagged"}},
		},
		{
			name: "first occurrence wins",
			in:   "Name: first\nName: second\nTags: a\nTags: b",
			want: Artifact{Name: "first", Description: "No description provided.", Tags: []string{"a"}},
		},
		{
			name: "blank tags fall back",
			in:   "Name: n\nDescription: d\nTags: , ,",
			want: Artifact{Name: "n", Description: "d", Tags: []string{"untagged"}},
		},
		{
			name: "windows line endings",
			in:   "Name: n\r\nDescription: d\r\nTags: a\r\n",
			want: Artifact{Name: "n", Description: "d", Tags: []string{"a"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseFreeText(tt.in)); diff != "" {
				t.Errorf("ParseFreeText() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	got, err := ParseJSON(`{"name": "n", "description": "", "tags": ["a", "b"]}`)
	require.NoError(t, err)
	assert.Equal(t, Artifact{Name: "n", Description: "", Tags: []string{"a", "b"}}, got)

	got, err = ParseJSON(`{"name": "", "description": "Adds OAuth.", "tags": ["auth"]}`)
	require.NoError(t, err)
	assert.Equal(t, Artifact{Name: "", Description: "Adds OAuth.", Tags: []string{"auth"}}, got)

	for in, msg := range map[string]string{
		`not json`:                                       "failed to decode summary",
		`{"description": "d", "tags": []}`:               `missing "name"`,
		`{"name": "n", "tags": []}`:                      `missing "description"`,
		`{"name": "n", "description": "d"}`:              `missing "tags"`,
		`{"name": "n", "description": "d", "tags": [1]}`: "failed to decode summary",
	} {
		_, err := ParseJSON(in)
		assert.ErrorContains(t, err, msg, in)
	}
}

var fieldGen = rapid.StringMatching(`[A-Za-z0-9][A-Za-z0-9 .!?-]{0,30}[A-Za-z0-9.]`)

// Rendering a well-formed artifact as lines and parsing it gives it back.
func TestParseFreeTextRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := Artifact{
			Name:        fieldGen.Draw(t, "name"),
			Description: fieldGen.Draw(t, "description"),
			Tags:        rapid.SliceOfN(rapid.StringMatching(`[a-z][a-z0-9-]{0,10}`), 1, 5).Draw(t, "tags"),
		}
		lines := []string{
			"Name: " + want.Name,
			"Description: " + want.Description,
			"Tags: " + strings.Join(want.Tags, ", "),
		}
		order := rapid.Permutation(lines).Draw(t, "order")

		got := ParseFreeText(strings.Join(order, "\n"))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

// Any input yields a complete artifact with no blank fields.
func TestParseFreeTextAlwaysComplete(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		got := ParseFreeText(rapid.String().Draw(t, "reply"))
		if strings.TrimSpace(got.Name) == "" || strings.TrimSpace(got.Description) == "" || len(got.Tags) == 0 {
			t.Fatalf("incomplete artifact %+v", got)
		}
		for _, tag := range got.Tags {
			if strings.TrimSpace(tag) == "" || strings.Contains(tag, ",") {
				t.Fatalf("bad tag %q", tag)
			}
		}
	})
}
