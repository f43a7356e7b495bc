package facts

import "testing"

func TestDifficultyBand_Symmetric(t *testing.T) {
	for m := 1; m <= MaxFactor; m++ {
		for n := 1; n <= MaxFactor; n++ {
			if DifficultyBand(m, n) != DifficultyBand(n, m) {
				t.Errorf("DifficultyBand(%d, %d) != DifficultyBand(%d, %d)", m, n, n, m)
			}
		}
	}
}

func TestDifficultyBand(t *testing.T) {
	tests := []struct {
		m, n int
		want Band
	}{
		{1, 1, BandBasic},
		{5, 5, BandBasic},
		{3, 4, BandBasic},
		{6, 6, BandIntermediate},
		{1, 6, BandIntermediate},
		{9, 9, BandIntermediate},
		{10, 10, BandAdvanced},
		{1, 12, BandAdvanced},
	}
	for _, tt := range tests {
		if got := DifficultyBand(tt.m, tt.n); got != tt.want {
			t.Errorf("DifficultyBand(%d, %d) = %s, want %s", tt.m, tt.n, got, tt.want)
		}
	}

	for m := 1; m <= 5; m++ {
		for n := 1; n <= 5; n++ {
			if got := DifficultyBand(m, n); got != BandBasic {
				t.Errorf("DifficultyBand(%d, %d) = %s, want basic", m, n, got)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	th := Thresholds{Fast: 5, Medium: 15}
	tests := []struct {
		seconds float64
		want    Speed
	}{
		{0, SpeedFast},
		{4.9, SpeedFast},
		{5, SpeedMedium},
		{15, SpeedMedium},
		{15.1, SpeedSlow},
		{120, SpeedSlow},
	}
	for _, tt := range tests {
		if got := Classify(tt.seconds, th); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.seconds, got, tt.want)
		}
	}
}

func TestClassify_ReversedThresholdsDoNotPanic(t *testing.T) {
	th := Thresholds{Fast: 15, Medium: 5}
	if got := Classify(10, th); got != SpeedFast {
		t.Errorf("Classify(10) = %s, want fast", got)
	}
	if got := Classify(20, th); got != SpeedSlow {
		t.Errorf("Classify(20) = %s, want slow", got)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds.Validate(); err != nil {
		t.Errorf("DefaultThresholds.Validate() = %v", err)
	}
	if err := (Thresholds{Fast: 10, Medium: 10}).Validate(); err == nil {
		t.Error("expected error for equal thresholds")
	}
	if err := (Thresholds{Fast: 0, Medium: 10}).Validate(); err == nil {
		t.Error("expected error for zero fast threshold")
	}
}

func TestFact(t *testing.T) {
	f := New(7, 8)
	if f.Product() != 56 {
		t.Errorf("Product() = %d, want 56", f.Product())
	}
	if f.String() != "7 × 8" {
		t.Errorf("String() = %q", f.String())
	}
	if !f.Valid() || New(0, 3).Valid() || New(3, 13).Valid() {
		t.Error("Valid() mismatch")
	}
	if n := len(All()); n != 144 {
		t.Errorf("len(All()) = %d, want 144", n)
	}
}

func TestParse(t *testing.T) {
	if _, err := ParseBand("advanced"); err != nil {
		t.Errorf("ParseBand(advanced) = %v", err)
	}
	if _, err := ParseBand("expert"); err == nil {
		t.Error("expected error for unknown band")
	}
	if sp, err := ParseSpeed(""); err != nil || sp != "" {
		t.Errorf("ParseSpeed(\"\") = %q, %v", sp, err)
	}
	if _, err := ParseSpeed("glacial"); err == nil {
		t.Error("expected error for unknown speed")
	}
}
