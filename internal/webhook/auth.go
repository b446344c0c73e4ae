package webhook

import (
	"crypto/subtle"
	"encoding/json"
)

// validGoogleKey reports whether the payload's google_key matches the
// configured lead form key.
func validGoogleKey(raw []byte, expected string) bool {
	if expected == "" {
		return false
	}
	var payload struct {
		GoogleKey string `json:"google_key"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.GoogleKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(payload.GoogleKey), []byte(expected)) == 1
}
