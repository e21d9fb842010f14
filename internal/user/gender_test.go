package user

import "testing"

func TestDetectGender(t *testing.T) {
	cases := []struct {
		message  string
		username string
		want     Gender
	}{
		{"hey bro what's up", "", GenderMale},
		{"hi girl!", "", GenderFemale},
		{"", "Alexander", GenderMale},
		{"", "Anna", GenderFemale},
		{"hello there", "", GenderUnknown},
		{"bro or sis, girl and dude", "", GenderUnknown}, // tied signals
	}
	for _, c := range cases {
		if got := DetectGender(c.message, c.username); got != c.want {
			t.Fatalf("DetectGender(%q, %q) = %s, want %s", c.message, c.username, got, c.want)
		}
	}
}

func TestGreetingMatchesGender(t *testing.T) {
	seen := map[Gender][]string{
		GenderMale:    greetings[GenderMale],
		GenderFemale:  greetings[GenderFemale],
		GenderUnknown: greetings[GenderUnknown],
	}
	for g, opts := range seen {
		got := Greeting(g)
		found := false
		for _, o := range opts {
			if got == o {
				found = true
			}
		}
		if !found {
			t.Fatalf("Greeting(%s) = %q not in %v", g, got, opts)
		}
	}
}
