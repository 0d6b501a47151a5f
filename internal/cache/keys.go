package cache

import "strconv"

const keyPrefix = "forecast:"

// DeriveKeys maps a coordinate pair to its value key and companion
// creation-time key. Both are pure functions of the inputs: identical
// coordinates always collide, any difference in either coordinate
// produces a different key.
func DeriveKeys(lat, lon float64) (valueKey, creationKey string) {
	valueKey = keyPrefix + formatCoord(lat) + "," + formatCoord(lon)
	return valueKey, valueKey + ":created"
}

// formatCoord renders a coordinate with the shortest representation that
// round-trips exactly, so key derivation is deterministic.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
