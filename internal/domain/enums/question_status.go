package enums

type QuestionStatus string

const (
	QuestionStatusPending  QuestionStatus = "PENDING"
	QuestionStatusAnswered QuestionStatus = "ANSWERED"
	QuestionStatusRejected QuestionStatus = "REJECTED"
	QuestionStatusArchived QuestionStatus = "ARCHIVED"
)

// Terminal reports whether no further workflow transition is defined
// for the status. PENDING is the only non-terminal question status.
func (s QuestionStatus) Terminal() bool {
	switch s {
	case QuestionStatusAnswered, QuestionStatusRejected, QuestionStatusArchived:
		return true
	}
	return false
}
