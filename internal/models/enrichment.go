package models

// EnrichmentEntry holds locally curated station details used to override the
// catalog's often inconsistent strings.
type EnrichmentEntry struct {
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
}

// EnrichmentTable maps a station key to its enrichment entry.
type EnrichmentTable map[string]EnrichmentEntry

func DecodeEnrichmentTable(body []byte) (EnrichmentTable, error) {
	var table EnrichmentTable
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, err
	}
	if table == nil {
		table = EnrichmentTable{}
	}
	return table, nil
}
