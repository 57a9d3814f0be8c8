package rewrite

import (
	"strings"

	"NewsDesk/internal/config"
)

// DistrictTagger matches text against an ordered district keyword table.
type DistrictTagger struct {
	districts []config.DistrictConfig
}

// NewDistrictTagger lowercases keywords once; table order is match priority.
func NewDistrictTagger(districts []config.DistrictConfig) *DistrictTagger {
	normalized := make([]config.DistrictConfig, 0, len(districts))
	for _, d := range districts {
		keywords := make([]string, 0, len(d.Keywords))
		for _, kw := range d.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		normalized = append(normalized, config.DistrictConfig{Name: d.Name, Keywords: keywords})
	}
	return &DistrictTagger{districts: normalized}
}

// Detect returns the first district whose keyword occurs in headline or summary.
func (t *DistrictTagger) Detect(headline, summary string) *string {
	if t == nil {
		return nil
	}

	text := strings.ToLower(headline + " " + summary)
	for _, d := range t.districts {
		for _, kw := range d.Keywords {
			if strings.Contains(text, kw) {
				name := d.Name
				return &name
			}
		}
	}
	return nil
}
