package utils

// ValidUsername reports whether s can be used as a username. A username made
// only of digits would be read back as a user id, so at least one non-digit
// is required.
func ValidUsername(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}
