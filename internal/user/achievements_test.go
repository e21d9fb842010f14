package user

import (
	"testing"
	"time"
)

func TestEvaluateUnlocksOnce(t *testing.T) {
	a := NewAchievements()
	s := NewStats(time.Now())
	s.MessageCount = 1

	unlocked := a.Evaluate(s)
	if len(unlocked) != 1 || unlocked[0].ID != AchFirstWords {
		t.Fatalf("want first_words, got %+v", unlocked)
	}
	// same conditions again: nothing new
	if again := a.Evaluate(s); len(again) != 0 {
		t.Fatalf("achievement unlocked twice: %+v", again)
	}
}

func TestEvaluateThresholds(t *testing.T) {
	a := NewAchievements()
	s := NewStats(time.Now())
	s.MessageCount = 100

	unlocked := a.Evaluate(s)
	ids := NewStringSet()
	for _, u := range unlocked {
		ids.Add(u.ID)
	}
	if !ids.Has(AchFirstWords) || !ids.Has(AchChatterbox) || !ids.Has(AchSoulmate) {
		t.Fatalf("missing expected unlocks: %v", ids.Members())
	}
	if ids.Has(AchButtonMasher) || ids.Has(AchHugDealer) {
		t.Fatalf("unexpected unlocks: %v", ids.Members())
	}
}

func TestButtonMasherNeedsEveryButton(t *testing.T) {
	a := NewAchievements()
	s := NewStats(time.Now())

	for _, btn := range MenuButtons[:len(MenuButtons)-1] {
		a.UseButton(btn)
	}
	// pressing a known button repeatedly does not help
	a.UseButton(MenuButtons[0])
	for _, u := range a.Evaluate(s) {
		if u.ID == AchButtonMasher {
			t.Fatalf("unlocked with %d distinct buttons", a.ButtonsUsed.Len())
		}
	}

	a.UseButton(MenuButtons[len(MenuButtons)-1])
	found := false
	for _, u := range a.Evaluate(s) {
		if u.ID == AchButtonMasher {
			found = true
		}
	}
	if !found {
		t.Fatalf("not unlocked with all buttons: %v", a.ButtonsUsed.Members())
	}
}

func TestHugDealer(t *testing.T) {
	a := NewAchievements()
	s := NewStats(time.Now())
	for i := 0; i < 50; i++ {
		a.Bump(ProgressHugs)
	}
	found := false
	for _, u := range a.Evaluate(s) {
		if u.ID == AchHugDealer {
			found = true
		}
	}
	if !found {
		t.Fatalf("hug_dealer not unlocked at 50 hugs")
	}
}

func TestNormalizeDefaultsMissingCollections(t *testing.T) {
	a := &Achievements{}
	a.Normalize()
	if a.Unlocked == nil || a.Progress == nil || a.ButtonsUsed == nil {
		t.Fatalf("collections not defaulted: %+v", a)
	}
}
