package transport

import (
	"encoding/json"
	"strings"
)

// GuestCount is a party size as the qualification form sends it: a range
// such as "5-8" or "20+", or a bare number from API clients.
type GuestCount string

func (g *GuestCount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = GuestCount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*g = GuestCount(n.String())
	return nil
}

// Ptr returns the trimmed value, or nil when absent or blank.
func (g *GuestCount) Ptr() *string {
	if g == nil {
		return nil
	}
	s := strings.TrimSpace(string(*g))
	if s == "" {
		return nil
	}
	return &s
}
