package agent

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ConflictChoice is one of the five conflict-resolution menu options.
type ConflictChoice int

const (
	ChoiceUnknown         ConflictChoice = 0
	ChoiceOverlap         ConflictChoice = 1
	ChoiceCancelExisting  ConflictChoice = 2
	ChoiceReschedule      ConflictChoice = 3
	ChoicesSuggestSlots   ConflictChoice = 4
	ChoiceAbortNewMeeting ConflictChoice = 5
)

// ParseConflictChoice maps a free-text reply onto the five-option conflict
// menu. Matching is deliberately substring-based rather than LLM-based:
// robustness over nuance. Order matters; the first match wins.
func ParseConflictChoice(text string) ConflictChoice {
	choice := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(choice, "1"), strings.Contains(choice, "sobrepor"), strings.Contains(choice, "agendar"):
		return ChoiceOverlap
	case strings.Contains(choice, "2"), strings.Contains(choice, "cancelar") && strings.Contains(choice, "existente"):
		return ChoiceCancelExisting
	case strings.Contains(choice, "3"), strings.Contains(choice, "remanejar"):
		return ChoiceReschedule
	case strings.Contains(choice, "4"), strings.Contains(choice, "sugerir"), strings.Contains(choice, "alternativ"):
		return ChoicesSuggestSlots
	case strings.Contains(choice, "5"), strings.Contains(choice, "cancelar") && strings.Contains(choice, "nova"):
		return ChoiceAbortNewMeeting
	default:
		return ChoiceUnknown
	}
}

// Errors distinguishing the two invalid slot-selection replies: no digit at
// all versus a digit outside the offered range.
var (
	ErrNoDigit    = errors.New("no digit in reply")
	ErrOutOfRange = errors.New("digit out of range")
)

var digitRe = regexp.MustCompile(`\b([0-9])\b`)

// ParseSlotChoice extracts a 1-based slot selection from a reply. max is the
// number of slots that were offered.
func ParseSlotChoice(text string, max int) (int, error) {
	m := digitRe.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrNoDigit
	}

	n, _ := strconv.Atoi(m[1])
	if n < 1 || n > max {
		return 0, ErrOutOfRange
	}
	return n, nil
}
