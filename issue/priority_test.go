package issue

import "testing"

func TestPriority_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		priority Priority
		want     bool
	}{
		{"error is valid", PriorityError, true},
		{"high is valid", PriorityHigh, true},
		{"normal is valid", PriorityNormal, true},
		{"low is valid", PriorityLow, true},
		{"empty is invalid", Priority(""), false},
		{"upper case is invalid", Priority("HIGH"), false},
		{"medium is invalid", Priority("medium"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.priority.IsValid(); got != tt.want {
				t.Errorf("Priority.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Priority
		wantErr bool
	}{
		{"parse error", "error", PriorityError, false},
		{"parse high", "high", PriorityHigh, false},
		{"parse normal", "normal", PriorityNormal, false},
		{"parse low", "low", PriorityLow, false},
		{"invalid priority", "critical", "", true},
		{"empty string", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePriority(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePriority() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParsePriority() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComparePriority(t *testing.T) {
	tests := []struct {
		name string
		p1   Priority
		p2   Priority
		sign int
	}{
		{"error > high", PriorityError, PriorityHigh, 1},
		{"high > normal", PriorityHigh, PriorityNormal, 1},
		{"normal > low", PriorityNormal, PriorityLow, 1},
		{"low == low", PriorityLow, PriorityLow, 0},
		{"low < error", PriorityLow, PriorityError, -1},
		{"invalid < low", Priority("x"), PriorityLow, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComparePriority(tt.p1, tt.p2)
			if sign(got) != tt.sign {
				t.Errorf("ComparePriority(%v, %v) = %v, want sign %v", tt.p1, tt.p2, got, tt.sign)
			}
		})
	}
}

func TestAllPriorities(t *testing.T) {
	all := AllPriorities()
	if len(all) != 4 {
		t.Fatalf("AllPriorities() returned %d priorities, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if ComparePriority(all[i-1], all[i]) <= 0 {
			t.Errorf("AllPriorities() not ordered at %d: %v before %v", i, all[i-1], all[i])
		}
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
