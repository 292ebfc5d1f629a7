package models

// Status is a sign-off process lifecycle state.
type Status string

const (
	StatusAreaValidationInProgress  Status = "AREA_VALIDATION_IN_PROGRESS"
	StatusAreaValidationComplete    Status = "AREA_VALIDATION_COMPLETE"
	StatusExecutiveSignOffPending   Status = "EXECUTIVE_SIGN_OFF_PENDING"
	StatusExecutiveSigned           Status = "EXECUTIVE_SIGNED"
	StatusPartnerCountersignPending Status = "PARTNER_COUNTERSIGN_PENDING"
	StatusCompleted                 Status = "COMPLETED"
	StatusRejected                  Status = "REJECTED"
)

// transitions is the complete legal graph. Terminal states have no entry.
var transitions = map[Status][]Status{
	StatusAreaValidationInProgress:  {StatusAreaValidationComplete, StatusRejected},
	StatusAreaValidationComplete:    {StatusExecutiveSignOffPending},
	StatusExecutiveSignOffPending:   {StatusExecutiveSigned},
	StatusExecutiveSigned:           {StatusPartnerCountersignPending},
	StatusPartnerCountersignPending: {StatusCompleted},
}

// AllStatuses lists every state, happy path first.
func AllStatuses() []Status {
	return []Status{
		StatusAreaValidationInProgress,
		StatusAreaValidationComplete,
		StatusExecutiveSignOffPending,
		StatusExecutiveSigned,
		StatusPartnerCountersignPending,
		StatusCompleted,
		StatusRejected,
	}
}

// Path is the full legal sequence from initiation to completion.
func Path() []Status {
	return AllStatuses()[:6]
}

// CanTransition reports whether current may move directly to target.
// It is pure and total: unknown states and self-transitions are false.
func CanTransition(current, target Status) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

func (s Status) IsValid() bool {
	switch s {
	case StatusAreaValidationInProgress, StatusAreaValidationComplete, StatusExecutiveSignOffPending,
		StatusExecutiveSigned, StatusPartnerCountersignPending, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

func (s Status) String() string {
	return string(s)
}
