package device

import "testing"

func TestSerials(t *testing.T) {
	tests := []struct {
		name  string
		cfg   SerialConfig
		count int
		first string
		last  string
	}{
		{
			name:  "default population shape",
			cfg:   SerialConfig{Count: 500, Prefix: "SN-", PadWidth: 3},
			count: 500,
			first: "SN-000",
			last:  "SN-499",
		},
		{
			name:  "small population",
			cfg:   SerialConfig{Count: 3, Prefix: "SN-", PadWidth: 3},
			count: 3,
			first: "SN-000",
			last:  "SN-002",
		},
		{
			name:  "custom prefix and width",
			cfg:   SerialConfig{Count: 2, Prefix: "DEV_", PadWidth: 5},
			count: 2,
			first: "DEV_00000",
			last:  "DEV_00001",
		},
		{
			name:  "count exceeding pad width",
			cfg:   SerialConfig{Count: 1001, Prefix: "SN-", PadWidth: 3},
			count: 1001,
			first: "SN-000",
			last:  "SN-1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serials := Serials(tt.cfg)

			if len(serials) != tt.count {
				t.Fatalf("len(serials) = %d, want %d", len(serials), tt.count)
			}
			if serials[0] != tt.first {
				t.Errorf("First serial = %q, want %q", serials[0], tt.first)
			}
			if serials[len(serials)-1] != tt.last {
				t.Errorf("Last serial = %q, want %q", serials[len(serials)-1], tt.last)
			}
		})
	}
}

func TestSerials_EmptyPopulation(t *testing.T) {
	if got := Serials(SerialConfig{Count: 0, Prefix: "SN-", PadWidth: 3}); got != nil {
		t.Errorf("Expected nil for zero count, got %v", got)
	}
}

func TestSerials_Deterministic(t *testing.T) {
	cfg := SerialConfig{Count: 10, Prefix: "SN-", PadWidth: 3}
	a := Serials(cfg)
	b := Serials(cfg)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Serials not deterministic at index %d: %q vs %q", i, a[i], b[i])
		}
	}
}
