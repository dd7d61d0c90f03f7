package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `{
	"title": "Fire Brigade",
	"detail_summary": "",
	"summary": ["<p>Call <b>101</b> in an emergency.</p><script>track()</script>"],
	"internal_link": "https://webadmin.pmc.gov.in/api/basic-page/fire-stations",
	"data": {
		"sub_summary": "Stations across Pune",
		"descriptions": ["Open 24x7"],
		"pdf_files": [
			{"pdf_title": "Station list", "file_url": "https://webadmin.pmc.gov.in/files/stations.pdf"}
		],
		"external_link": "https://www.mahafireservice.gov.in"
	}
}`

func TestExtractTextAndLinks(t *testing.T) {
	var data any
	require.NoError(t, json.Unmarshal([]byte(samplePage), &data))

	text, links := ExtractTextAndLinks(data)

	assert.Equal(t, "Fire Brigade Call 101 in an emergency. Stations across Pune Open 24x7 Station list", text)
	assert.Equal(t, []string{
		"https://webadmin.pmc.gov.in/api/basic-page/fire-stations",
		"https://www.mahafireservice.gov.in",
		"https://webadmin.pmc.gov.in/files/stations.pdf",
	}, links)
}

func TestExtractTextAndLinks_Deterministic(t *testing.T) {
	var data any
	require.NoError(t, json.Unmarshal([]byte(samplePage), &data))

	text1, links1 := ExtractTextAndLinks(data)
	for i := 0; i < 10; i++ {
		text2, links2 := ExtractTextAndLinks(data)
		assert.Equal(t, text1, text2)
		assert.Equal(t, links1, links2)
	}
}

func TestCleanHTML(t *testing.T) {
	assert.Equal(t, "Pay tax online today", CleanHTML("<div>Pay <a href='#'>tax</a>\n online <style>p{}</style>today</div>"))
	assert.Equal(t, "", CleanHTML(""))
}
