package assign

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/splitlab/splitlab/internal/experiment"
)

func TestBucket_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(t, "variants")
		variants := make([]experiment.Variant, n)
		weights := make([]float64, n)
		var total float64
		for i := range weights {
			weights[i] = float64(rapid.IntRange(1, 100).Draw(t, "weight"))
			total += weights[i]
		}
		for i := range variants {
			variants[i] = experiment.Variant{
				ID:                string(rune('a' + i)),
				TrafficAllocation: weights[i] / total * 100,
			}
		}
		variants[0].IsControl = true

		expID := rapid.StringMatching(`[a-z0-9-]{1,32}`).Draw(t, "experiment")
		userID := rapid.StringMatching(`[ -~]{1,64}`).Draw(t, "user")

		got := Bucket(variants, expID, userID)
		if got == nil {
			t.Fatalf("Bucket returned nil")
		}

		found := false
		for i := range variants {
			if variants[i].ID == got.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("Bucket returned unknown variant %q", got.ID)
		}

		if again := Bucket(variants, expID, userID); again.ID != got.ID {
			t.Fatalf("Bucket not deterministic: %q then %q", got.ID, again.ID)
		}
	})
}

func TestBucket_ZeroAllocationVariantUnreachable(t *testing.T) {
	variants := []experiment.Variant{
		{ID: "control", IsControl: true, TrafficAllocation: 0},
		{ID: "b", TrafficAllocation: 100},
	}
	for i := 0; i < 1000; i++ {
		v := Bucket(variants, "exp-zero", string(rune(i)))
		if v.ID != "b" {
			t.Fatalf("user %d landed on zero-allocation variant", i)
		}
	}
}
