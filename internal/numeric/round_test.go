package numeric

import "testing"

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		1.005:   1.0,
		1.2345:  1.23,
		1.2355:  1.24,
		-1.005:  -1.0,
		100.999: 101.0,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Errorf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestRound1(t *testing.T) {
	if got := Round1(0.449); got != 0.4 {
		t.Errorf("Round1(0.449) = %v, want 0.4", got)
	}
	if got := Round1(0.45); got != 0.5 {
		t.Errorf("Round1(0.45) = %v, want 0.5", got)
	}
}

func TestRound3(t *testing.T) {
	if got := Round3(1.23456); got != 1.235 {
		t.Errorf("Round3(1.23456) = %v, want 1.235", got)
	}
}
