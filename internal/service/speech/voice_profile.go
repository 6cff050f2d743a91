package speech

import "strings"

// DefaultSpeed matches the relaxed reading pace used for advice playback.
const DefaultSpeed = 0.9

var supportedVoices = map[string]struct{}{
	"alloy":   {},
	"echo":    {},
	"fable":   {},
	"onyx":    {},
	"nova":    {},
	"shimmer": {},
}

// NormalizeVoice lowercases voice and falls back when it is not supported.
func NormalizeVoice(voice, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(voice))
	if _, ok := supportedVoices[normalized]; ok {
		return normalized
	}
	return fallback
}

// clampSpeed keeps speed inside the API's accepted range.
func clampSpeed(speed float64) float64 {
	if speed <= 0 {
		return DefaultSpeed
	}
	if speed < 0.25 {
		return 0.25
	}
	if speed > 4 {
		return 4
	}
	return speed
}
