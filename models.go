package matchcore

import (
	"strings"
	"time"
)

// Profile represents a user's matrimonial profile.
// One row per user, created at registration and mutated by profile
// updates; never hard-deleted (Active=false instead).
type Profile struct {
	UserID        int
	BirthDate     time.Time
	Gender        string
	HeightCm      int
	WeightKg      int
	MaritalStatus string
	Religion      string
	Caste         string
	SubCaste      string
	MotherTongue  string
	Education     string
	Occupation    string
	AnnualIncome  int
	City          string
	State         string
	Country       string
	AboutMe       string
	FamilyType    string
	FamilyValues  string
	Diet          string
	PhotoCount    int
	Active        bool
	Hidden        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Age returns the profile's age in whole years at time now.
// Returns 0 when the birth date is unset.
func (p Profile) Age(now time.Time) int {
	if p.BirthDate.IsZero() {
		return 0
	}
	years := now.Year() - p.BirthDate.Year()
	// Birthday not reached yet this year
	if now.YearDay() < p.BirthDate.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Preference holds a viewer's desired ranges and value sets over the
// profile attribute space. One row per user. Set-valued fields are
// stored comma-delimited and parsed with SplitSet.
type Preference struct {
	UserID        int
	AgeMin        int
	AgeMax        int
	HeightMinCm   int
	HeightMaxCm   int
	MaritalStatus string // comma-delimited set
	Religion      string
	Caste         string
	SubCaste      string
	MotherTongue  string
	Education     string // comma-delimited set
	Occupation    string // comma-delimited set
	IncomeMin     int
	IncomeMax     int
	Cities        string // comma-delimited set
	States        string // comma-delimited set
	Countries     string // comma-delimited set
	Gender        string
}

// SplitSet parses a comma-delimited preference value into its trimmed,
// lower-cased members. Empty input yields nil.
func SplitSet(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LedgerStatus is the current lifecycle state of a pairing.
//
// CANDIDATE → SENT → {MUTUAL | DECLINED_BY_RECIPIENT}
// CANDIDATE → WITHDRAWN_BY_VIEWER
type LedgerStatus string

const (
	StatusCandidate           LedgerStatus = "CANDIDATE"
	StatusSent                LedgerStatus = "SENT"
	StatusMutual              LedgerStatus = "MUTUAL"
	StatusDeclinedByRecipient LedgerStatus = "DECLINED_BY_RECIPIENT"
	StatusWithdrawnByViewer   LedgerStatus = "WITHDRAWN_BY_VIEWER"
)

// ParseLedgerStatus validates a stored status value at the boundary.
func ParseLedgerStatus(s string) (LedgerStatus, error) {
	switch LedgerStatus(s) {
	case StatusCandidate, StatusSent, StatusMutual, StatusDeclinedByRecipient, StatusWithdrawnByViewer:
		return LedgerStatus(s), nil
	}
	return "", invalidRequestf("ParseLedgerStatus", "unknown ledger status %q", s)
}

// RequestStatus is the state of one direction of a pairing.
//
// PENDING → {MUTUAL | REJECTED}
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestMutual   RequestStatus = "MUTUAL"
	RequestRejected RequestStatus = "REJECTED"
)

// RequestAction is a responder's decision on a pending request.
type RequestAction string

const (
	ActionAccept RequestAction = "ACCEPT"
	ActionReject RequestAction = "REJECT"
)

// ParseRequestAction validates a caller-supplied action string.
func ParseRequestAction(s string) (RequestAction, error) {
	switch RequestAction(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionAccept:
		return ActionAccept, nil
	case ActionReject:
		return ActionReject, nil
	}
	return "", invalidRequestf("ParseRequestAction", "unknown action %q", s)
}

// LedgerRow is the de-duplicated record of one pairing. At most one row
// exists per unordered (userA, userB) pair; PublicID is the only handle
// ever shown to clients and never changes once assigned.
type LedgerRow struct {
	ID              int
	PublicID        string
	ViewerUserID    int
	CandidateUserID int
	Status          LedgerStatus
	Score           float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Counterpart returns the other user of the pairing from userID's side.
func (l LedgerRow) Counterpart(userID int) int {
	if l.ViewerUserID == userID {
		return l.CandidateUserID
	}
	return l.ViewerUserID
}

// RequestRow is the directional record of one user's action within a
// pairing. Zero, one or two rows exist per PublicID; the reciprocal row
// appears only once the pairing becomes mutual.
type RequestRow struct {
	ID         int
	PublicID   string
	FromUserID int
	ToUserID   int
	Status     RequestStatus
	SentAt     time.Time
	UpdatedAt  time.Time
}

// Match is a surfaced pairing joined with the counterpart's profile.
type Match struct {
	PublicID string       `json:"public_id"`
	Status   LedgerStatus `json:"status"`
	Score    float64      `json:"score"`
	Profile  Profile      `json:"profile"`
}

// Recommendation is an advisory ranking entry; no ledger row backs it.
type Recommendation struct {
	UserID    int                `json:"user_id"`
	Total     float64            `json:"total"`
	Breakdown map[string]float64 `json:"breakdown"`
	Profile   Profile            `json:"profile"`
}

// RequestView is a directional request joined with the peer's profile
// for the sent/received listings.
type RequestView struct {
	PublicID string        `json:"public_id"`
	Status   RequestStatus `json:"status"`
	SentAt   time.Time     `json:"sent_at"`
	Peer     Profile       `json:"peer"`
}
