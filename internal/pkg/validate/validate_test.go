package validate

import "testing"

func TestMachineID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"M001", true},
		{"MACHINE42", true},
		{"A", true},
		{"", false},
		{"1M001", false},       // must start with a letter
		{"m001", false},        // lowercase not allowed
		{"M-001", false},       // hyphen not allowed
		{"M 001", false},       // space not allowed
		{string(make([]byte, 51)), false}, // too long (and not alpha, but length check short-circuits)
	}
	for _, c := range cases {
		if got := MachineID(c.id); got != c.want {
			t.Errorf("MachineID(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestMachineID_MaxLength(t *testing.T) {
	id := "A"
	for len(id) < MachineIDMaxLen {
		id += "0"
	}
	if !MachineID(id) {
		t.Errorf("expected id of exactly %d chars to be valid", MachineIDMaxLen)
	}
	if MachineID(id + "0") {
		t.Error("expected id exceeding max length to be invalid")
	}
}
