package parser

import (
	"encoding/json"
	"regexp"
)

// Twister payloads carrying colour/size variation data, as embedded in the
// page scripts.
var (
	variationValuesRe = regexp.MustCompile(`(?s)var\s+data\s*=\s*(\{.*?"variationValues".*?\})\s*;`)
	dimensionValuesRe = regexp.MustCompile(`(?s)"dimensionValuesDisplayData"\s*:\s*(\{.*?\})`)
	twisterDataRe     = regexp.MustCompile(`(?s)"twister-js-init-dpx-data"\s*:\s*(\{.*?\})`)
)

// parseVariations merges whatever twister variation payloads the page carries.
// Payloads that do not parse as JSON are skipped; nil when nothing matched.
func parseVariations(html string) map[string]any {
	out := make(map[string]any)

	if m := variationValuesRe.FindStringSubmatch(html); m != nil {
		var node struct {
			VariationValues map[string]any `json:"variationValues"`
		}
		if err := json.Unmarshal([]byte(m[1]), &node); err == nil {
			for k, v := range node.VariationValues {
				out[k] = v
			}
		}
	}

	for _, re := range []*regexp.Regexp{dimensionValuesRe, twisterDataRe} {
		m := re.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		var node map[string]any
		if err := json.Unmarshal([]byte(m[1]), &node); err != nil {
			continue
		}
		for k, v := range node {
			out[k] = v
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
