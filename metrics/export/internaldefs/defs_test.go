package internaldefs

import "testing"

func TestCumulativePadsShortInput(t *testing.T) {
	got := Cumulative([]uint64{1, 2, 3})
	want := [BucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("Cumulative = %v, want %v", got, want)
	}
}

func TestDefsHaveUniqueNames(t *testing.T) {
	seen := map[string]bool{AuditDropped.Name: true}
	for _, d := range append(append([]Def{}, CounterDefs...), HistogramDefs...) {
		if seen[d.Name] {
			t.Fatalf("duplicate metric name %s", d.Name)
		}
		seen[d.Name] = true
	}
}
