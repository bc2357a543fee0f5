package engine

import (
	"strings"
	"testing"

	"khata/internal/core"
)

func hasTip(tips []string, substr string) bool {
	for _, tip := range tips {
		if strings.Contains(tip, substr) {
			return true
		}
	}
	return false
}

func TestAssessNecessaryCategories(t *testing.T) {
	tests := []struct {
		name     string
		category core.Category
		amount   float64
		text     string
		wantTip  string
	}{
		{name: "bills are wanted", category: core.Bills, amount: 100, text: "electricity bill", wantTip: "subscriptions"},
		{name: "health is wanted", category: core.Health, amount: 800, text: "pharmacy", wantTip: "generics"},
		{name: "travel is wanted", category: core.Travel, amount: 300, text: "bus ticket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(tt.category, tt.amount, tt.text)
			if a.Verdict != Wanted {
				t.Errorf("Assess(%s) verdict = %v, want Wanted", tt.category, a.Verdict)
			}
			if a.Reason == "" {
				t.Error("reason should not be empty")
			}
			if tt.wantTip != "" && !hasTip(a.Tips, tt.wantTip) {
				t.Errorf("tips %v should mention %q", a.Tips, tt.wantTip)
			}
		})
	}
}

func TestAssessDiscretionaryCategories(t *testing.T) {
	for _, cat := range []core.Category{core.Entertainment, core.Shopping} {
		a := Assess(cat, 500, "weekend")
		if a.Verdict != Unwanted {
			t.Errorf("Assess(%s) verdict = %v, want Unwanted", cat, a.Verdict)
		}
		if !hasTip(a.Tips, "monthly cap") || !hasTip(a.Tips, "24 hours") {
			t.Errorf("Assess(%s) should carry cap and delay tips, got %v", cat, a.Tips)
		}
	}
}

func TestAssessFoodSplitsOnEatingOut(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Verdict
	}{
		{name: "restaurant dinner", text: "restaurant dinner", want: Unwanted},
		{name: "hotel meal", text: "lunch at hotel paradise", want: Unwanted},
		{name: "biryani order", text: "chicken biryani x2", want: Unwanted},
		{name: "grocery store", text: "grocery store", want: Wanted},
		{name: "empty text", text: "", want: Wanted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(core.Food, 50, tt.text)
			if a.Verdict != tt.want {
				t.Errorf("Assess(Food, 50, %q) = %v, want %v", tt.text, a.Verdict, tt.want)
			}
			if tt.want == Unwanted && !hasTip(a.Tips, "cook at home") {
				t.Errorf("eating-out assessment should tip cooking at home, got %v", a.Tips)
			}
		})
	}
}

func TestAssessMiscThreshold(t *testing.T) {
	tests := []struct {
		amount float64
		want   Verdict
	}{
		{100, Wanted},
		{499.99, Wanted},
		{500, Unwanted},
		{600, Unwanted},
	}

	for _, tt := range tests {
		a := Assess(core.Misc, tt.amount, "random item")
		if a.Verdict != tt.want {
			t.Errorf("Assess(Misc, %v) = %v, want %v", tt.amount, a.Verdict, tt.want)
		}
	}
}

func TestAssessAmountTipsAccumulate(t *testing.T) {
	t.Run("high spend tip for discretionary categories", func(t *testing.T) {
		a := Assess(core.Shopping, 3000, "mall purchase")
		if a.Verdict != Unwanted {
			t.Errorf("verdict = %v, want Unwanted", a.Verdict)
		}
		if !hasTip(a.Tips, "High spend detected") {
			t.Errorf("tips should include high-spend warning, got %v", a.Tips)
		}
		// The category tips are still present.
		if !hasTip(a.Tips, "monthly cap") {
			t.Errorf("category tips should survive augmentation, got %v", a.Tips)
		}
	})

	t.Run("no high spend tip outside discretionary categories", func(t *testing.T) {
		a := Assess(core.Travel, 3000, "flight")
		if hasTip(a.Tips, "High spend detected") {
			t.Errorf("travel should not get the high-spend tip, got %v", a.Tips)
		}
	})

	t.Run("emergency buffer tip for any category at 5000", func(t *testing.T) {
		a := Assess(core.Bills, 5000, "annual premium")
		if !hasTip(a.Tips, "emergency buffer") {
			t.Errorf("tips should include emergency buffer, got %v", a.Tips)
		}
	})

	t.Run("both thresholds stack", func(t *testing.T) {
		a := Assess(core.Entertainment, 6000, "concert")
		if !hasTip(a.Tips, "High spend detected") || !hasTip(a.Tips, "emergency buffer") {
			t.Errorf("both amount tips should fire, got %v", a.Tips)
		}
	})
}

func TestAssessIsDeterministic(t *testing.T) {
	first := Assess(core.Shopping, 2500, "mall")
	second := Assess(core.Shopping, 2500, "mall")
	if first.Verdict != second.Verdict || first.Reason != second.Reason || len(first.Tips) != len(second.Tips) {
		t.Errorf("Assess is not deterministic: %+v vs %+v", first, second)
	}
}

func TestStaticTips(t *testing.T) {
	for _, cat := range []core.Category{core.Food, core.Travel, core.Entertainment, core.Bills, core.Shopping, core.Health} {
		tips := StaticTips(cat, nil)
		if len(tips) < 2 || len(tips) > 3 {
			t.Errorf("tip bank for %s should hold 2-3 tips, got %d", cat, len(tips))
		}
	}

	fallback := []string{"generated tip"}
	if got := StaticTips(core.Misc, fallback); len(got) != 1 || got[0] != "generated tip" {
		t.Errorf("Misc should fall back to generated tips, got %v", got)
	}
}
