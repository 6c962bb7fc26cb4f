package target

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr bool
	}{
		{"default", Default(), false},
		{"narrow", Target{Name: "native32", WordSize: 4}, false},
		{"unnamed", Target{WordSize: 8}, true},
		{"zero word size", Target{Name: "odd"}, true},
		{"odd word size", Target{Name: "odd", WordSize: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%+v) = %v, wantErr=%v", tt.target, err, tt.wantErr)
			}
		})
	}
}

func TestWordBits(t *testing.T) {
	if got := Default().WordBits(); got != 64 {
		t.Fatalf("default word bits: got %d", got)
	}
	if got := (Target{Name: "native32", WordSize: 4}).WordBits(); got != 32 {
		t.Fatalf("32-bit word bits: got %d", got)
	}
	if got := (Target{}).WordBits(); got != 64 {
		t.Fatalf("zero target word bits: got %d", got)
	}
}
