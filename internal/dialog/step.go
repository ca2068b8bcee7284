package dialog

import (
	"time"

	"github.com/vpgclub/clubbot/internal/platform"
)

// StepKind selects how a prompt collects its answer
type StepKind int

const (
	// StepText waits for the user's next message in the channel
	StepText StepKind = iota
	// StepSelect waits for a choice on an attached select menu
	StepSelect
)

// Step is one prompt of a dialog run
type Step struct {
	Key     string
	Prompt  string
	Kind    StepKind
	Options []platform.SelectOption
	// MinValues/MaxValues bound select cardinality; zero MinValues means 1.
	MinValues int
	MaxValues int
	// Timeout overrides the engine default when non-zero
	Timeout time.Duration
}

// Answer is the resolved value(s) of one step
type Answer struct {
	Key    string
	Values []string
}

// Answers is the complete ordered record of a successful run
type Answers []Answer

// Get returns the first value recorded for key, or ""
func (a Answers) Get(key string) string {
	for _, ans := range a {
		if ans.Key == key && len(ans.Values) > 0 {
			return ans.Values[0]
		}
	}
	return ""
}

// All returns every value recorded for key
func (a Answers) All(key string) []string {
	for _, ans := range a {
		if ans.Key == key {
			return ans.Values
		}
	}
	return nil
}
