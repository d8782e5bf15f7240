package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MarshalJSON keeps the price in its original string form.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Raw)
}

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (p *Price) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		p.Raw = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		p.Raw = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	p.Raw = n.String()
	return nil
}

// Unit parses the price as a number, ignoring the dollar sign and thousands
// separators. ok is false for strings such as "N/A".
func (p Price) Unit() (value float64, ok bool) {
	cleaned := strings.TrimSpace(p.Raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
