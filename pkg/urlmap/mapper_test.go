package urlmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dskvich/pmc-assistant/pkg/domain"
)

const backendPrefix = "https://webadmin.pmc.gov.in/api/"

func testMappings() []domain.URLMapping {
	return []domain.URLMapping{
		{APIURL: backendPrefix + "basic-page/property-tax?lang=en", FrontendURL: "https://www.pmc.gov.in/en/property-tax", ManualVerdict: "correct"},
		{APIURL: backendPrefix + "basic-page/tree-cutting?lang=en", FrontendURL: "https://www.pmc.gov.in/en/tree-authority", Status: "Found"},
		{APIURL: backendPrefix + "basic-page/fire-brigade?lang=en", FrontendURL: "https://www.pmc.gov.in/en/fire", ManualVerdict: "incorrect"},
		{APIURL: backendPrefix + "basic-page/water?lang=en", FrontendURL: "", ManualVerdict: "correct"},
		{APIURL: backendPrefix + "basic-page/tax-circulars?lang=en", FrontendURL: "https://www.pmc.gov.in/en/circulars", ManualVerdict: "correct"},
	}
}

func newTestMapper(t *testing.T) *Mapper {
	t.Helper()
	m, err := New(testMappings(), backendPrefix)
	require.NoError(t, err)
	return m
}

func TestMapper_FrontendURL(t *testing.T) {
	m := newTestMapper(t)

	f, ok := m.FrontendURL(backendPrefix + "basic-page/property-tax?lang=en")
	assert.True(t, ok)
	assert.Equal(t, "https://www.pmc.gov.in/en/property-tax", f)

	_, ok = m.FrontendURL(backendPrefix + "basic-page/unknown")
	assert.False(t, ok, "absent url")

	_, ok = m.FrontendURL(backendPrefix + "basic-page/fire-brigade?lang=en")
	assert.False(t, ok, "invalid verdict")

	_, ok = m.FrontendURL(backendPrefix + "basic-page/water?lang=en")
	assert.False(t, ok, "empty frontend url")
}

func TestMapper_ConvertURLs(t *testing.T) {
	m := newTestMapper(t)

	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			name:     "plain url",
			in:       "See " + backendPrefix + "basic-page/property-tax?lang=en for details",
			expected: "See https://www.pmc.gov.in/en/property-tax for details",
		},
		{
			name:     "markdown link",
			in:       "[tax](" + backendPrefix + "basic-page/property-tax?lang=en)",
			expected: "[tax](https://www.pmc.gov.in/en/property-tax)",
		},
		{
			name:     "trailing sentence punctuation",
			in:       "Visit " + backendPrefix + "basic-page/tree-cutting?lang=en.",
			expected: "Visit https://www.pmc.gov.in/en/tree-authority.",
		},
		{
			name:     "unmapped url untouched",
			in:       "Go to https://example.org/x and " + backendPrefix + "basic-page/fire-brigade?lang=en",
			expected: "Go to https://example.org/x and " + backendPrefix + "basic-page/fire-brigade?lang=en",
		},
		{
			name:     "no urls",
			in:       "nothing to see",
			expected: "nothing to see",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.ConvertURLs(tt.in)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, m.ConvertURLs(got), "conversion must be idempotent")
		})
	}
}

func TestMapper_SearchByKeyword(t *testing.T) {
	m := newTestMapper(t)

	got := m.SearchByKeyword("TAX")
	require.Len(t, got, 2)
	assert.Equal(t, "https://www.pmc.gov.in/en/property-tax", got[0].FrontendURL)
	assert.Equal(t, "https://www.pmc.gov.in/en/circulars", got[1].FrontendURL)

	assert.Empty(t, m.SearchByKeyword("fire"), "invalid records are not searchable")
	assert.Empty(t, m.SearchByKeyword("  "))
}

func TestMapper_AllFrontendURLs(t *testing.T) {
	m := newTestMapper(t)
	assert.Equal(t, []string{
		"https://www.pmc.gov.in/en/property-tax",
		"https://www.pmc.gov.in/en/tree-authority",
		"https://www.pmc.gov.in/en/circulars",
	}, m.AllFrontendURLs())
}

func TestMapper_ResolveLink(t *testing.T) {
	m := newTestMapper(t)

	link, ok := m.ResolveLink(backendPrefix + "basic-page/property-tax?lang=en")
	assert.True(t, ok)
	assert.Equal(t, "https://www.pmc.gov.in/en/property-tax", link)

	_, ok = m.ResolveLink(backendPrefix + "basic-page/unmapped")
	assert.False(t, ok)

	link, ok = m.ResolveLink("https://example.org/form.pdf")
	assert.True(t, ok)
	assert.Equal(t, "https://example.org/form.pdf", link)

	_, ok = m.ResolveLink("")
	assert.False(t, ok)
}

func TestNew_Duplicates(t *testing.T) {
	same := domain.URLMapping{APIURL: backendPrefix + "a", FrontendURL: "https://www.pmc.gov.in/en/a", ManualVerdict: "correct"}

	m, err := New([]domain.URLMapping{same, same}, backendPrefix)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	conflict := same
	conflict.FrontendURL = "https://www.pmc.gov.in/en/b"
	_, err = New([]domain.URLMapping{same, conflict}, backendPrefix)
	assert.ErrorIs(t, err, domain.ErrInvalidMapping)
}

func TestNew_ChainedMapping(t *testing.T) {
	const site = "https://www.pmc.gov.in/en/"

	tests := []struct {
		name     string
		mappings []domain.URLMapping
	}{
		{
			name: "frontend url is a key",
			mappings: []domain.URLMapping{
				{APIURL: backendPrefix + "a", FrontendURL: backendPrefix + "b", ManualVerdict: "correct"},
				{APIURL: backendPrefix + "b", FrontendURL: site + "b", ManualVerdict: "correct"},
			},
		},
		{
			name: "frontend url with punctuation is a key",
			mappings: []domain.URLMapping{
				{APIURL: backendPrefix + "a", FrontendURL: site + "p", ManualVerdict: "correct"},
				{APIURL: site + "p.", FrontendURL: site + "q", ManualVerdict: "correct"},
			},
		},
		{
			name: "trimmed frontend url is a key",
			mappings: []domain.URLMapping{
				{APIURL: backendPrefix + "a", FrontendURL: site + "p!", ManualVerdict: "correct"},
				{APIURL: site + "p", FrontendURL: site + "q", ManualVerdict: "correct"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.mappings, backendPrefix)
			assert.ErrorIs(t, err, domain.ErrInvalidMapping)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("object with mappings", func(t *testing.T) {
		path := filepath.Join(dir, "mappings.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"total_mappings": 2,
			"correct_mappings": 1,
			"mappings": [
				{"api_url": "`+backendPrefix+`a", "frontend_url": "https://www.pmc.gov.in/en/a", "manual_verdict": "correct"},
				{"api_url": "`+backendPrefix+`b", "frontend_url": "https://www.pmc.gov.in/en/b", "manual_verdict": "wrong"}
			]
		}`), 0o600))

		m := Load(path, backendPrefix)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("bare list", func(t *testing.T) {
		path := filepath.Join(dir, "list.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"api_url": "`+backendPrefix+`a", "frontend_url": "https://www.pmc.gov.in/en/a", "status": "Found"}
		]`), 0o600))

		m := Load(path, backendPrefix)
		f, ok := m.FrontendURL(backendPrefix + "a")
		assert.True(t, ok)
		assert.Equal(t, "https://www.pmc.gov.in/en/a", f)
	})

	t.Run("missing file degrades to no-op", func(t *testing.T) {
		m := Load(filepath.Join(dir, "absent.json"), backendPrefix)
		require.NotNil(t, m)
		assert.Equal(t, 0, m.Len())
		assert.Equal(t, "keep "+backendPrefix+"a", m.ConvertURLs("keep "+backendPrefix+"a"))
		assert.Empty(t, m.SearchByKeyword("a"))
		assert.Empty(t, m.AllFrontendURLs())
	})

	t.Run("malformed file degrades to no-op", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"mappings": [`), 0o600))

		m := Load(path, backendPrefix)
		assert.Equal(t, 0, m.Len())
	})
}
