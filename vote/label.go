package vote

import "strings"

// Label is one of the fixed answer choices.
type Label string

const (
	A Label = "A"
	B Label = "B"
	C Label = "C"
	D Label = "D"
)

// Labels lists every valid label in display order.
var Labels = []Label{A, B, C, D}

const commandPrefix = "!ANSWER"

var aliases = map[string]Label{
	"A": A, "B": B, "C": C, "D": D,
	"1": A, "2": B, "3": C, "4": D,
}

// Normalize maps a raw chat message to an answer label. The message is trimmed
// and upper-cased and an optional "!answer" prefix is stripped. Anything that
// is not a letter A-D or digit 1-4 is not a vote.
func Normalize(raw string) (Label, bool) {
	msg := canonical(raw)
	l, ok := aliases[msg]
	return l, ok
}

// ParseLabel accepts only the canonical letters, case-insensitively.
func ParseLabel(s string) (Label, bool) {
	switch l := Label(strings.ToUpper(strings.TrimSpace(s))); l {
	case A, B, C, D:
		return l, true
	}
	return "", false
}

func canonical(raw string) string {
	msg := strings.ToUpper(strings.TrimSpace(raw))
	if strings.HasPrefix(msg, commandPrefix) {
		msg = strings.TrimSpace(strings.TrimPrefix(msg, commandPrefix))
	}
	return msg
}
