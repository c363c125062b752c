package matchcore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Postgres error codes worth distinguishing.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// PGStore is the production MatchStore over Postgres. Pair rows carry a
// canonical (user_lo, user_hi) key with a UNIQUE constraint, so the
// one-row-per-unordered-pair invariant holds even under concurrent
// creation: the losing inserter retries its closure against the
// winner's row.
type PGStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB, log zerolog.Logger) *PGStore {
	return &PGStore{db: db, log: log}
}

// pairKey canonicalizes an unordered pair: the smaller id always comes
// first, so both orderings hit the same ledger row and the same unique
// constraint.
func pairKey(a, b int) (lo, hi int) {
	if a < b {
		return a, b
	}
	return b, a
}

/// withTx wraps fn in a transaction: COMMIT on success, ROLLBACK on
// error or panic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// UpdatePair runs fn with the pair's ledger row locked (FOR UPDATE).
// When fn creates the row and a concurrent transaction wins the insert
// race, the closure is retried once against the committed winner.
func (s *PGStore) UpdatePair(ctx context.Context, userA, userB int, fn func(PairTx) error) error {
	const op = "PGStore.UpdatePair"
	lo, hi := pairKey(userA, userB)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = withTx(ctx, s.db, func(tx *sql.Tx) error {
			row, err := lockPairRow(tx, lo, hi)
			if err != nil {
				return err
			}
			return fn(&pgPairTx{tx: tx, row: row})
		})
		if attempt == 0 && isUniqueViolation(err) {
			s.log.Debug().Int("user_lo", lo).Int("user_hi", hi).
				Msg("pair insert lost creation race, retrying against existing row")
			continue
		}
		break
	}
	return wrapStoreErr(op, err)
}

// UpdateByPublicID runs fn with the ledger row behind publicID locked.
// fn observes a nil ledger when the handle is unknown.
func (s *PGStore) UpdateByPublicID(ctx context.Context, publicID string, fn func(PairTx) error) error {
	const op = "PGStore.UpdateByPublicID"
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		row, err := scanLedger(tx.QueryRow(ledgerSelect+` WHERE public_id = $1 FOR UPDATE`, publicID))
		if err != nil {
			return err
		}
		return fn(&pgPairTx{tx: tx, row: row})
	})
	return wrapStoreErr(op, err)
}

// FindPair returns the unordered pair's ledger row, or nil.
func (s *PGStore) FindPair(ctx context.Context, userA, userB int) (*LedgerRow, error) {
	const op = "PGStore.FindPair"
	lo, hi := pairKey(userA, userB)
	row, err := scanLedger(s.db.QueryRowContext(ctx, ledgerSelect+` WHERE user_lo = $1 AND user_hi = $2`, lo, hi))
	if err != nil {
		return nil, internalErr(op, err)
	}
	return row, nil
}

// LedgerByPublicID returns the ledger row behind a public handle, or
// nil when unknown.
func (s *PGStore) LedgerByPublicID(ctx context.Context, publicID string) (*LedgerRow, error) {
	const op = "PGStore.LedgerByPublicID"
	row, err := scanLedger(s.db.QueryRowContext(ctx, ledgerSelect+` WHERE public_id = $1`, publicID))
	if err != nil {
		return nil, internalErr(op, err)
	}
	return row, nil
}

// LinkedUserIDs returns every counterpart tied to userID by a ledger
// row in either direction.
func (s *PGStore) LinkedUserIDs(ctx context.Context, userID int) ([]int, error) {
	const op = "PGStore.LinkedUserIDs"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			CASE
				WHEN viewer_user_id = $1 THEN candidate_user_id
				ELSE viewer_user_id
			END AS linked_id
		FROM match_ledger
		WHERE viewer_user_id = $1 OR candidate_user_id = $1
	`, userID)
	if err != nil {
		return nil, internalErr(op, err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, internalErr(op, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RequestsFrom returns userID's outgoing request rows, newest first.
func (s *PGStore) RequestsFrom(ctx context.Context, userID int, statuses ...RequestStatus) ([]RequestRow, error) {
	return s.queryRequests(ctx, "from_user_id", userID, statuses)
}

// RequestsTo returns userID's incoming request rows, newest first.
func (s *PGStore) RequestsTo(ctx context.Context, userID int, statuses ...RequestStatus) ([]RequestRow, error) {
	return s.queryRequests(ctx, "to_user_id", userID, statuses)
}

func (s *PGStore) queryRequests(ctx context.Context, column string, userID int, statuses []RequestStatus) ([]RequestRow, error) {
	const op = "PGStore.queryRequests"
	query := requestSelect + fmt.Sprintf(` WHERE %s = $1`, column)
	args := []any{userID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusStrings(statuses)))
	}
	query += ` ORDER BY sent_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalErr(op, err)
	}
	defer rows.Close()

	var out []RequestRow
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, internalErr(op, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LedgerForUser returns ledger rows involving userID on either side.
func (s *PGStore) LedgerForUser(ctx context.Context, userID int, statuses ...LedgerStatus) ([]LedgerRow, error) {
	const op = "PGStore.LedgerForUser"
	query := ledgerSelect + ` WHERE (viewer_user_id = $1 OR candidate_user_id = $1)`
	args := []any{userID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		ss := make([]string, len(statuses))
		for i, st := range statuses {
			ss[i] = string(st)
		}
		args = append(args, pq.Array(ss))
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalErr(op, err)
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var l LedgerRow
		var status string
		if err := rows.Scan(&l.ID, &l.PublicID, &l.ViewerUserID, &l.CandidateUserID, &status, &l.Score, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, internalErr(op, err)
		}
		st, err := ParseLedgerStatus(status)
		if err != nil {
			return nil, err
		}
		l.Status = st
		out = append(out, l)
	}
	return out, rows.Err()
}

// InitSchema creates the ledger and request tables. Safe to run
// repeatedly.
func (s *PGStore) InitSchema(ctx context.Context) error {
	const op = "PGStore.InitSchema"
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return internalErr(op, err)
		}
	}
	s.log.Info().Msg("match ledger schema ready")
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS match_ledger (
		id                SERIAL PRIMARY KEY,
		public_id         VARCHAR(16) NOT NULL UNIQUE,
		viewer_user_id    INTEGER NOT NULL,
		candidate_user_id INTEGER NOT NULL,
		user_lo           INTEGER NOT NULL,
		user_hi           INTEGER NOT NULL,
		status            VARCHAR(32) NOT NULL,
		score             DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT match_ledger_pair_unique UNIQUE (user_lo, user_hi),
		CONSTRAINT match_ledger_pair_order CHECK (user_lo < user_hi)
	)`,
	`CREATE TABLE IF NOT EXISTS match_requests (
		id           SERIAL PRIMARY KEY,
		public_id    VARCHAR(16) NOT NULL REFERENCES match_ledger(public_id),
		from_user_id INTEGER NOT NULL,
		to_user_id   INTEGER NOT NULL,
		status       VARCHAR(16) NOT NULL,
		sent_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS match_requests_public_id_idx ON match_requests (public_id)`,
	`CREATE INDEX IF NOT EXISTS match_requests_from_idx ON match_requests (from_user_id)`,
	`CREATE INDEX IF NOT EXISTS match_requests_to_idx ON match_requests (to_user_id)`,
}

const ledgerSelect = `
	SELECT id, public_id, viewer_user_id, candidate_user_id, status, score, created_at, updated_at
	FROM match_ledger`

const requestSelect = `
	SELECT id, public_id, from_user_id, to_user_id, status, sent_at, updated_at
	FROM match_requests`

// lockPairRow loads the pair's ledger row and takes a row lock so no
// concurrent transaction can modify it until ours finishes. Returns
// (nil, nil) when no row exists yet.
func lockPairRow(tx *sql.Tx, lo, hi int) (*LedgerRow, error) {
	return scanLedger(tx.QueryRow(ledgerSelect+` WHERE user_lo = $1 AND user_hi = $2 FOR UPDATE`, lo, hi))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(r rowScanner) (*LedgerRow, error) {
	var l LedgerRow
	var status string
	err := r.Scan(&l.ID, &l.PublicID, &l.ViewerUserID, &l.CandidateUserID, &status, &l.Score, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st, err := ParseLedgerStatus(status)
	if err != nil {
		return nil, err
	}
	l.Status = st
	return &l, nil
}

func scanRequest(r rowScanner) (RequestRow, error) {
	var req RequestRow
	var status string
	err := r.Scan(&req.ID, &req.PublicID, &req.FromUserID, &req.ToUserID, &status, &req.SentAt, &req.UpdatedAt)
	if err != nil {
		return RequestRow{}, err
	}
	req.Status = RequestStatus(status)
	return req, nil
}

func statusStrings(statuses []RequestStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// pgPairTx is the PairTx over one open transaction holding the pair
// lock.
type pgPairTx struct {
	tx  *sql.Tx
	row *LedgerRow
}

func (p *pgPairTx) Ledger() *LedgerRow { return p.row }

func (p *pgPairTx) CreateLedger(viewerID, candidateID int, status LedgerStatus, score float64) (*LedgerRow, error) {
	lo, hi := pairKey(viewerID, candidateID)
	l := &LedgerRow{
		PublicID:        NewPublicID(),
		ViewerUserID:    viewerID,
		CandidateUserID: candidateID,
		Status:          status,
		Score:           score,
	}
	err := p.tx.QueryRow(`
		INSERT INTO match_ledger (public_id, viewer_user_id, candidate_user_id, user_lo, user_hi, status, score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, l.PublicID, viewerID, candidateID, lo, hi, string(status), score).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.row = l
	return l, nil
}

func (p *pgPairTx) SetLedgerStatus(status LedgerStatus) error {
	if p.row == nil {
		return errors.New("no ledger row loaded")
	}
	err := p.tx.QueryRow(`
		UPDATE match_ledger SET status = $1, updated_at = now()
		WHERE id = $2
		RETURNING updated_at
	`, string(status), p.row.ID).Scan(&p.row.UpdatedAt)
	if err != nil {
		return err
	}
	p.row.Status = status
	return nil
}

func (p *pgPairTx) Requests() ([]RequestRow, error) {
	if p.row == nil {
		return nil, nil
	}
	rows, err := p.tx.Query(requestSelect+` WHERE public_id = $1 ORDER BY sent_at ASC, id ASC`, p.row.PublicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RequestRow
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *pgPairTx) AppendRequest(fromUserID, toUserID int, status RequestStatus) (*RequestRow, error) {
	if p.row == nil {
		return nil, errors.New("no ledger row loaded")
	}
	r := &RequestRow{
		PublicID:   p.row.PublicID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     status,
	}
	err := p.tx.QueryRow(`
		INSERT INTO match_requests (public_id, from_user_id, to_user_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, sent_at, updated_at
	`, r.PublicID, fromUserID, toUserID, string(status)).
		Scan(&r.ID, &r.SentAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (p *pgPairTx) SetRequestStatus(requestID int, status RequestStatus) error {
	res, err := p.tx.Exec(`
		UPDATE match_requests SET status = $1, updated_at = now()
		WHERE id = $2
	`, string(status), requestID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("request %d not found", requestID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

func isConcurrencyFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pgSerializationFailure || pqErr.Code == pgDeadlockDetected
}

// wrapStoreErr passes domain errors through untouched, maps lost
// concurrency races to Conflict and everything else to the generic
// infrastructure kind.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	if isConcurrencyFailure(err) || isUniqueViolation(err) {
		return &DomainError{Kind: KindConflict, Op: op, Reason: "lost concurrent update", Err: err}
	}
	return internalErr(op, err)
}
