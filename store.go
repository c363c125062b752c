package matchcore

import "context"

// ProfileStore supplies profile and preference records. It is an
// external collaborator: the engine never writes through it.
type ProfileStore interface {
	// GetProfile returns the user's profile or a NotFound error.
	GetProfile(ctx context.Context, userID int) (Profile, error)

	// GetPreference returns the user's declared preference or a
	// NotFound error.
	GetPreference(ctx context.Context, userID int) (Preference, error)

	// ListActiveCandidates returns all active, non-hidden profiles
	// excluding the given user.
	ListActiveCandidates(ctx context.Context, excludeUserID int) ([]Profile, error)
}

// NotificationDispatcher delivers match notifications. Calls are
// best-effort and made after a lifecycle transition has committed; a
// delivery failure never rolls the transition back.
type NotificationDispatcher interface {
	NotifyNewMatch(viewerID, candidateID int) error
	NotifyMutualMatch(userA, userB int) error
}

// PairTx exposes the state of one unordered pair while the store holds
// it exclusively. All mutations made through it commit or roll back
// together.
type PairTx interface {
	// Ledger returns the pair's current ledger row, or nil when none
	// exists yet.
	Ledger() *LedgerRow

	// CreateLedger inserts the pair's ledger row with a fresh public
	// id. Fails the enclosing transaction when a concurrent creation
	// won the race; the store retries the closure against the winner's
	// row.
	CreateLedger(viewerID, candidateID int, status LedgerStatus, score float64) (*LedgerRow, error)

	// SetLedgerStatus transitions the pair's ledger row.
	SetLedgerStatus(status LedgerStatus) error

	// Requests returns the request rows recorded under the pair's
	// public id, oldest first.
	Requests() ([]RequestRow, error)

	// AppendRequest records a directional action under the pair's
	// public id.
	AppendRequest(fromUserID, toUserID int, status RequestStatus) (*RequestRow, error)

	// SetRequestStatus transitions one request row.
	SetRequestStatus(requestID int, status RequestStatus) error
}

// MatchStore persists the match ledger and request log. UpdatePair and
// UpdateByPublicID run their closure atomically with the pair locked so
// that read-then-write sequences cannot interleave; of two simultaneous
// writers one commits and the other observes the committed state (or a
// Conflict), never a silent overwrite.
type MatchStore interface {
	UpdatePair(ctx context.Context, userA, userB int, fn func(PairTx) error) error
	UpdateByPublicID(ctx context.Context, publicID string, fn func(PairTx) error) error

	// FindPair returns the ledger row for the unordered pair, or nil.
	FindPair(ctx context.Context, userA, userB int) (*LedgerRow, error)

	// LedgerByPublicID returns the ledger row behind a public handle,
	// or nil when unknown.
	LedgerByPublicID(ctx context.Context, publicID string) (*LedgerRow, error)

	// LinkedUserIDs returns every user already tied to userID by a
	// ledger row in either direction, regardless of status.
	LinkedUserIDs(ctx context.Context, userID int) ([]int, error)

	// RequestsFrom returns request rows sent by userID, newest first,
	// optionally filtered by status.
	RequestsFrom(ctx context.Context, userID int, statuses ...RequestStatus) ([]RequestRow, error)

	// RequestsTo returns request rows addressed to userID, newest
	// first, optionally filtered by status.
	RequestsTo(ctx context.Context, userID int, statuses ...RequestStatus) ([]RequestRow, error)

	// LedgerForUser returns ledger rows involving userID on either
	// side, optionally filtered by status.
	LedgerForUser(ctx context.Context, userID int, statuses ...LedgerStatus) ([]LedgerRow, error)
}
