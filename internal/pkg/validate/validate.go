// Package validate provides input validation for API path and body parameters.
package validate

// MachineIDMaxLen is the maximum allowed length for machineId.
const MachineIDMaxLen = 50

// MachineID validates a machine identifier: 1–50 chars, uppercase
// alphanumeric, must start with a letter.
func MachineID(id string) bool {
	if id == "" || len(id) > MachineIDMaxLen {
		return false
	}
	first := id[0]
	if !(first >= 'A' && first <= 'Z') {
		return false
	}
	for _, r := range id {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}
