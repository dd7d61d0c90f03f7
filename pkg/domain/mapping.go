package domain

const (
	mappingStatusFound    = "Found"
	mappingVerdictCorrect = "correct"
)

// URLMapping pairs a backend content-API URL with its public page.
type URLMapping struct {
	APIURL        string `json:"api_url"`
	FrontendURL   string `json:"frontend_url"`
	Status        string `json:"status,omitempty"`
	ManualVerdict string `json:"manual_verdict,omitempty"`
}

func (m URLMapping) Valid() bool {
	if m.FrontendURL == "" {
		return false
	}
	return m.Status == mappingStatusFound || m.ManualVerdict == mappingVerdictCorrect
}
