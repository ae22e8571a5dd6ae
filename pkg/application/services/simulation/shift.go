package simulation

import "time"

// ShiftID maps a wall-clock time to its shift: S1 06-14, S2 14-22, S3 otherwise
func ShiftID(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 6 && h < 14:
		return "S1"
	case h >= 14 && h < 22:
		return "S2"
	default:
		return "S3"
	}
}
