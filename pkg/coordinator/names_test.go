package coordinator

import "testing"

func TestLabelForDeterministic(t *testing.T) {
	if LabelFor(0) != LabelFor(0) {
		t.Error("LabelFor must be deterministic")
	}
	if got := LabelFor(0); got != "Amber Auk" {
		t.Errorf("LabelFor(0) = %q", got)
	}
	if got := LabelFor(1); got != "Basalt Auk" {
		t.Errorf("LabelFor(1) = %q", got)
	}
	if got := LabelFor(25); got != "Amber Bittern" {
		t.Errorf("LabelFor(25) = %q", got)
	}
}

func TestLabelForUniqueWithinCycle(t *testing.T) {
	seen := make(map[string]int)
	for n := 0; n < 625; n++ {
		label := LabelFor(n)
		if prev, ok := seen[label]; ok {
			t.Fatalf("LabelFor(%d) = %q already produced by LabelFor(%d)", n, label, prev)
		}
		seen[label] = n
	}
}

func TestLabelForWrapsWithGenerationSuffix(t *testing.T) {
	if got := LabelFor(625); got != "Amber Auk 2" {
		t.Errorf("LabelFor(625) = %q, want %q", got, "Amber Auk 2")
	}
	if got := LabelFor(-1); got != LabelFor(0) {
		t.Errorf("LabelFor(-1) = %q, want clamped to first label", got)
	}
}
