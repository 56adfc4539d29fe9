package vote

// Reason records why AcceptVote took its decision.
type Reason int

const (
	ReasonAccepted Reason = iota
	ReasonRoundClosed
	ReasonEmptyUsername
	ReasonStale
	ReasonDuplicateMessageID
	ReasonDuplicateSignature
	ReasonAlreadyVoted
	ReasonInvalidAnswer
)

var reasonNames = map[Reason]string{
	ReasonAccepted:           "accepted",
	ReasonRoundClosed:        "round_closed",
	ReasonEmptyUsername:      "empty_username",
	ReasonStale:              "stale",
	ReasonDuplicateMessageID: "duplicate_message_id",
	ReasonDuplicateSignature: "duplicate_signature",
	ReasonAlreadyVoted:       "already_voted",
	ReasonInvalidAnswer:      "invalid_answer",
}

// String returns the metric/log friendly name of the reason.
func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "unknown"
}

// MarshalText lets reasons appear as strings in JSON payloads.
func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
