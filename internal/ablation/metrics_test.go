package ablation

import "testing"

func TestScoreResults(t *testing.T) {
	tests := []struct {
		name       string
		retrieved  []string
		expected   []string
		tp, fp, fn int
	}{
		{"perfect", []string{"a", "b"}, []string{"a", "b"}, 2, 0, 0},
		{"partial", []string{"a", "b", "x"}, []string{"a", "b", "c"}, 2, 1, 1},
		{"disjoint", []string{"x", "y"}, []string{"a", "b"}, 0, 2, 2},
		{"nothing retrieved", nil, []string{"a"}, 0, 0, 1},
		{"no truth", []string{"x"}, nil, 0, 1, 0},
		{"empty both", nil, nil, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, fp, fn := scoreResults(tt.retrieved, tt.expected)
			if tp != tt.tp || fp != tt.fp || fn != tt.fn {
				t.Errorf("scoreResults() = (%d, %d, %d), want (%d, %d, %d)",
					tp, fp, fn, tt.tp, tt.fp, tt.fn)
			}
		})
	}
}

func TestZeroDenominators(t *testing.T) {
	if got := precision(0, 0); got != 0 {
		t.Errorf("precision(0,0) = %f", got)
	}
	if got := recall(0, 0); got != 0 {
		t.Errorf("recall(0,0) = %f", got)
	}
	if got := f1(0, 0); got != 0 {
		t.Errorf("f1(0,0) = %f", got)
	}
}

func TestMetricValues(t *testing.T) {
	p := precision(2, 1)
	r := recall(2, 1)
	if p < 0.66 || p > 0.67 {
		t.Errorf("precision(2,1) = %f", p)
	}
	if got := f1(p, r); got < 0.66 || got > 0.67 {
		t.Errorf("f1 = %f", got)
	}
	if got := f1(1, 1); got != 1 {
		t.Errorf("f1(1,1) = %f", got)
	}
}

func TestImpact(t *testing.T) {
	if got := (Result{F1: 1}).Impact(); got != 0 {
		t.Errorf("impact of perfect result = %f", got)
	}
	if got := (Result{F1: 0}).Impact(); got != 1 {
		t.Errorf("impact of destroyed result = %f", got)
	}
}

func TestImpactKey(t *testing.T) {
	got := ImpactKey("AblationLocationActivity", "AblationMusicActivity")
	if got != "AblationLocationActivity_impact_on_AblationMusicActivity" {
		t.Errorf("ImpactKey = %q", got)
	}
}
