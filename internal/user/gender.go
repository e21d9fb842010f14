package user

import (
	"math/rand"
	"regexp"
	"strings"
)

// Gender is a lazily detected hint used only to pick a greeting term.
// Once detected as male or female it is never recomputed.
type Gender string

const (
	GenderUnknown Gender = "unknown"
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
)

var (
	maleNames   = []string{"alex", "max", "mike", "john", "david", "chris", "andrew", "daniel"}
	femaleNames = []string{"anna", "maria", "sophia", "emma", "olivia", "lily", "natalie"}

	malePatterns   = compilePatterns(`\bbro\b`, `\bdude\b`, `\bman\b`, `\bbuddy\b`)
	femalePatterns = compilePatterns(`\bgirl\b`, `\bsis\b`, `\bqueen\b`)
)

func compilePatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// DetectGender guesses a gender hint from the username and message text.
// Returns GenderUnknown when the signals are absent or tied.
func DetectGender(message, username string) Gender {
	if username != "" {
		lower := strings.ToLower(username)
		for _, n := range maleNames {
			if strings.Contains(lower, n) {
				return GenderMale
			}
		}
		for _, n := range femaleNames {
			if strings.Contains(lower, n) {
				return GenderFemale
			}
		}
	}

	lower := strings.ToLower(message)
	var maleScore, femaleScore int
	for _, p := range malePatterns {
		if p.MatchString(lower) {
			maleScore++
		}
	}
	for _, p := range femalePatterns {
		if p.MatchString(lower) {
			femaleScore++
		}
	}

	switch {
	case maleScore > femaleScore:
		return GenderMale
	case femaleScore > maleScore:
		return GenderFemale
	default:
		return GenderUnknown
	}
}

var greetings = map[Gender][]string{
	GenderMale:    {"handsome", "buddy", "man"},
	GenderFemale:  {"beautiful", "gorgeous", "queen"},
	GenderUnknown: {"friend", "dear", "love"},
}

// Greeting picks a term of address for the given gender hint.
func Greeting(g Gender) string {
	opts, ok := greetings[g]
	if !ok {
		opts = greetings[GenderUnknown]
	}
	return opts[rand.Intn(len(opts))]
}
