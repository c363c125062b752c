package matchcore

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// defaultTopN is how many candidates a single listing surfaces.
const defaultTopN = 10

// MatchOrchestrator ties scoring output to ledger state. It enforces
// pair de-duplication and request idempotency and drives every
// lifecycle transition; all writes go through the MatchStore's
// transactional closures.
type MatchOrchestrator struct {
	profiles ProfileStore
	store    MatchStore
	scorer   *CompatibilityScorer
	ranker   *RecommendationRanker
	notifier NotificationDispatcher
	log      zerolog.Logger
	topN     int
	now      func() time.Time
}

// OrchestratorOption configures a MatchOrchestrator.
type OrchestratorOption func(*MatchOrchestrator)

// WithScorer overrides the compatibility scorer.
func WithScorer(s *CompatibilityScorer) OrchestratorOption {
	return func(o *MatchOrchestrator) { o.scorer = s }
}

// WithRanker overrides the recommendation ranker.
func WithRanker(r *RecommendationRanker) OrchestratorOption {
	return func(o *MatchOrchestrator) { o.ranker = r }
}

// WithNotifier sets the notification dispatcher.
func WithNotifier(n NotificationDispatcher) OrchestratorOption {
	return func(o *MatchOrchestrator) { o.notifier = n }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l zerolog.Logger) OrchestratorOption {
	return func(o *MatchOrchestrator) { o.log = l }
}

// WithTopN overrides how many candidates each listing returns.
func WithTopN(n int) OrchestratorOption {
	return func(o *MatchOrchestrator) {
		if n > 0 {
			o.topN = n
		}
	}
}

// WithClock overrides the orchestrator's time source.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *MatchOrchestrator) { o.now = now }
}

// NewMatchOrchestrator wires the engine together. Scorer and ranker
// default to the standard weight sets when not overridden.
func NewMatchOrchestrator(profiles ProfileStore, store MatchStore, opts ...OrchestratorOption) *MatchOrchestrator {
	o := &MatchOrchestrator{
		profiles: profiles,
		store:    store,
		scorer:   NewCompatibilityScorer(DefaultFactorWeights()),
		ranker:   NewRecommendationRanker(DefaultRankWeights()),
		log:      zerolog.Nop(),
		topN:     defaultTopN,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FindBestMatches scores the active candidate universe against the
// viewer's preference, reconciles the top results against the ledger
// (reusing an existing pair row or creating one) and returns only
// pairings still in CANDIDATE state. Repeated calls with no intervening
// lifecycle action return the same public ids.
func (o *MatchOrchestrator) FindBestMatches(ctx context.Context, viewerID int) ([]Match, error) {
	const op = "FindBestMatches"

	pref, err := o.profiles.GetPreference(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	candidates, err := o.profiles.ListActiveCandidates(ctx, viewerID)
	if err != nil {
		return nil, internalErr(op, err)
	}

	now := o.now()
	type scored struct {
		profile Profile
		score   float64
	}
	results := make([]scored, len(candidates))
	o.parallelEach(len(candidates), func(i int) {
		c := candidates[i]
		if !eligibleCandidate(c, pref) {
			results[i] = scored{profile: c, score: 0}
			return
		}
		results[i] = scored{profile: c, score: o.scorer.ScoreAt(now, c, pref)}
	})

	kept := results[:0]
	for _, r := range results {
		if r.score > 0 {
			kept = append(kept, r)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].profile.UserID < kept[j].profile.UserID
	})
	if len(kept) > o.topN {
		kept = kept[:o.topN]
	}

	matches := make([]Match, 0, len(kept))
	for _, c := range kept {
		var row *LedgerRow
		err := o.store.UpdatePair(ctx, viewerID, c.profile.UserID, func(tx PairTx) error {
			row = tx.Ledger()
			if row != nil {
				return nil
			}
			created, err := tx.CreateLedger(viewerID, c.profile.UserID, StatusCandidate, c.score)
			if err != nil {
				return err
			}
			row = created
			return nil
		})
		if err != nil {
			return nil, err
		}
		// Pairs already progressed past CANDIDATE stay out of this
		// listing.
		if row.Status != StatusCandidate {
			continue
		}
		matches = append(matches, Match{
			PublicID: row.PublicID,
			Status:   row.Status,
			Score:    row.Score,
			Profile:  c.profile,
		})
	}
	return matches, nil
}

// GetRecommendations ranks the candidate universe against the viewer's
// own profile, skipping anyone already linked by a ledger row in either
// direction. Advisory only: never creates ledger rows.
func (o *MatchOrchestrator) GetRecommendations(ctx context.Context, viewerID int) ([]Recommendation, error) {
	const op = "GetRecommendations"

	viewer, err := o.profiles.GetProfile(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	candidates, err := o.profiles.ListActiveCandidates(ctx, viewerID)
	if err != nil {
		return nil, internalErr(op, err)
	}
	linkedIDs, err := o.store.LinkedUserIDs(ctx, viewerID)
	if err != nil {
		return nil, internalErr(op, err)
	}
	linked := make(map[int]struct{}, len(linkedIDs))
	for _, id := range linkedIDs {
		linked[id] = struct{}{}
	}

	unlinked := candidates[:0]
	for _, c := range candidates {
		if _, taken := linked[c.UserID]; !taken {
			unlinked = append(unlinked, c)
		}
	}

	now := o.now()
	recs := make([]Recommendation, len(unlinked))
	o.parallelEach(len(unlinked), func(i int) {
		rs := o.ranker.ScoreAt(now, viewer, unlinked[i])
		recs[i] = Recommendation{
			UserID:    unlinked[i].UserID,
			Total:     rs.Total,
			Breakdown: rs.Breakdown,
			Profile:   unlinked[i],
		}
	})
	SortRecommendations(recs)
	if len(recs) > o.topN {
		recs = recs[:o.topN]
	}
	return recs, nil
}

// SendRequest sends (or re-sends) a match request from viewer to
// candidate. Creates the pair's ledger row when none exists; a pairing
// that already carries a PENDING or MUTUAL request conflicts.
func (o *MatchOrchestrator) SendRequest(ctx context.Context, viewerID, candidateID int) (*LedgerRow, error) {
	const op = "SendRequest"

	if candidateID <= 0 {
		return nil, invalidRequestf(op, "missing candidate id")
	}
	if candidateID == viewerID {
		return nil, &DomainError{Kind: KindInvalidRequest, Op: op, Reason: "cannot request yourself", UserID: viewerID}
	}
	candidate, err := o.profiles.GetProfile(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if !candidate.Active || candidate.Hidden {
		return nil, &DomainError{Kind: KindNotFound, Op: op, Reason: "candidate not available", UserID: candidateID}
	}

	// Best-effort score snapshot for freshly created rows; a missing
	// preference is not an error here.
	score := 0.0
	if pref, perr := o.profiles.GetPreference(ctx, viewerID); perr == nil {
		score = o.scorer.ScoreAt(o.now(), candidate, pref)
	}

	var out *LedgerRow
	err = o.store.UpdatePair(ctx, viewerID, candidateID, func(tx PairTx) error {
		row := tx.Ledger()
		if row == nil {
			created, err := tx.CreateLedger(viewerID, candidateID, StatusSent, score)
			if err != nil {
				return err
			}
			if _, err := tx.AppendRequest(viewerID, candidateID, RequestPending); err != nil {
				return err
			}
			out = created
			return nil
		}

		requests, err := tx.Requests()
		if err != nil {
			return err
		}
		for _, r := range requests {
			if r.Status == RequestPending || r.Status == RequestMutual {
				return &DomainError{
					Kind:     KindConflict,
					Op:       op,
					Reason:   "AlreadyRequested",
					PublicID: row.PublicID,
					UserID:   viewerID,
				}
			}
		}
		if err := tx.SetLedgerStatus(StatusSent); err != nil {
			return err
		}
		if _, err := tx.AppendRequest(viewerID, candidateID, RequestPending); err != nil {
			return err
		}
		row.Status = StatusSent
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.dispatch("new_match_request", func() error {
		return o.notifier.NotifyNewMatch(viewerID, candidateID)
	})
	return out, nil
}

// RespondToRequest applies the responder's ACCEPT or REJECT decision to
// the pending request under publicID. ACCEPT promotes the ledger to
// MUTUAL and appends the reciprocal MUTUAL request row in the same
// transaction; REJECT marks the request REJECTED and returns the ledger
// to CANDIDATE so the pairing may resurface later.
func (o *MatchOrchestrator) RespondToRequest(ctx context.Context, responderID int, publicID string, action RequestAction) (*LedgerRow, error) {
	const op = "RespondToRequest"

	if publicID == "" {
		return nil, invalidRequestf(op, "missing public id")
	}
	if action != ActionAccept && action != ActionReject {
		return nil, invalidRequestf(op, "unknown action %q", string(action))
	}

	var (
		out    *LedgerRow
		sender int
	)
	err := o.store.UpdateByPublicID(ctx, publicID, func(tx PairTx) error {
		row := tx.Ledger()
		if row == nil {
			return &DomainError{Kind: KindNotFound, Op: op, Reason: "unknown pairing", PublicID: publicID}
		}
		requests, err := tx.Requests()
		if err != nil {
			return err
		}
		var pending *RequestRow
		for i := range requests {
			if requests[i].Status == RequestPending {
				pending = &requests[i]
				break
			}
		}
		if pending == nil {
			return &DomainError{Kind: KindConflict, Op: op, Reason: "no pending request", PublicID: publicID}
		}
		if pending.ToUserID != responderID {
			return &DomainError{Kind: KindUnauthorized, Op: op, Reason: "request not addressed to caller", PublicID: publicID, UserID: responderID}
		}
		// A pending request implies SENT; anything else means a
		// concurrent transition already won.
		if row.Status != StatusSent {
			return &DomainError{Kind: KindConflict, Op: op, Reason: "pairing not awaiting response", PublicID: publicID}
		}

		switch action {
		case ActionAccept:
			if err := tx.SetRequestStatus(pending.ID, RequestMutual); err != nil {
				return err
			}
			if _, err := tx.AppendRequest(responderID, pending.FromUserID, RequestMutual); err != nil {
				return err
			}
			if err := tx.SetLedgerStatus(StatusMutual); err != nil {
				return err
			}
			row.Status = StatusMutual
		case ActionReject:
			if err := tx.SetRequestStatus(pending.ID, RequestRejected); err != nil {
				return err
			}
			if err := tx.SetLedgerStatus(StatusCandidate); err != nil {
				return err
			}
			row.Status = StatusCandidate
		}
		sender = pending.FromUserID
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	if action == ActionAccept {
		a, b := responderID, sender
		o.dispatch("mutual_match", func() error {
			return o.notifier.NotifyMutualMatch(a, b)
		})
	}
	return out, nil
}

// DeclineCandidate dismisses a surfaced CANDIDATE pairing without
// sending a request. Only the ledger's viewer side may decline; the
// pairing moves to WITHDRAWN_BY_VIEWER and stops resurfacing.
func (o *MatchOrchestrator) DeclineCandidate(ctx context.Context, viewerID int, publicID string) error {
	const op = "DeclineCandidate"

	if publicID == "" {
		return invalidRequestf(op, "missing public id")
	}
	return o.store.UpdateByPublicID(ctx, publicID, func(tx PairTx) error {
		row := tx.Ledger()
		if row == nil {
			return &DomainError{Kind: KindNotFound, Op: op, Reason: "unknown pairing", PublicID: publicID}
		}
		if row.ViewerUserID != viewerID {
			return &DomainError{Kind: KindUnauthorized, Op: op, Reason: "pairing not owned by caller", PublicID: publicID, UserID: viewerID}
		}
		if row.Status != StatusCandidate {
			return &DomainError{Kind: KindConflict, Op: op, Reason: "pairing already progressed", PublicID: publicID}
		}
		return tx.SetLedgerStatus(StatusWithdrawnByViewer)
	})
}

// SentRequests lists the user's outgoing requests with the peer's
// profile attached.
func (o *MatchOrchestrator) SentRequests(ctx context.Context, userID int) ([]RequestView, error) {
	const op = "SentRequests"
	rows, err := o.store.RequestsFrom(ctx, userID)
	if err != nil {
		return nil, internalErr(op, err)
	}
	return o.requestViews(ctx, rows, func(r RequestRow) int { return r.ToUserID }), nil
}

// ReceivedRequests lists requests awaiting the user's response.
func (o *MatchOrchestrator) ReceivedRequests(ctx context.Context, userID int) ([]RequestView, error) {
	const op = "ReceivedRequests"
	rows, err := o.store.RequestsTo(ctx, userID, RequestPending)
	if err != nil {
		return nil, internalErr(op, err)
	}
	return o.requestViews(ctx, rows, func(r RequestRow) int { return r.FromUserID }), nil
}

// MutualMatches lists the user's mutual pairings with the counterpart's
// profile attached.
func (o *MatchOrchestrator) MutualMatches(ctx context.Context, userID int) ([]Match, error) {
	const op = "MutualMatches"
	rows, err := o.store.LedgerForUser(ctx, userID, StatusMutual)
	if err != nil {
		return nil, internalErr(op, err)
	}
	return o.matchViews(ctx, userID, rows), nil
}

// DeclinedCandidates lists pairings the user dismissed before sending.
func (o *MatchOrchestrator) DeclinedCandidates(ctx context.Context, userID int) ([]Match, error) {
	const op = "DeclinedCandidates"
	rows, err := o.store.LedgerForUser(ctx, userID, StatusWithdrawnByViewer)
	if err != nil {
		return nil, internalErr(op, err)
	}
	// Withdrawals belong to the viewer side only.
	own := rows[:0]
	for _, r := range rows {
		if r.ViewerUserID == userID {
			own = append(own, r)
		}
	}
	return o.matchViews(ctx, userID, own), nil
}

func (o *MatchOrchestrator) requestViews(ctx context.Context, rows []RequestRow, peerOf func(RequestRow) int) []RequestView {
	views := make([]RequestView, 0, len(rows))
	for _, r := range rows {
		peer, err := o.profiles.GetProfile(ctx, peerOf(r))
		if err != nil {
			o.log.Warn().Err(err).Int("user_id", peerOf(r)).Msg("skipping request with missing peer profile")
			continue
		}
		views = append(views, RequestView{
			PublicID: r.PublicID,
			Status:   r.Status,
			SentAt:   r.SentAt,
			Peer:     peer,
		})
	}
	return views
}

func (o *MatchOrchestrator) matchViews(ctx context.Context, userID int, rows []LedgerRow) []Match {
	views := make([]Match, 0, len(rows))
	for _, r := range rows {
		peer, err := o.profiles.GetProfile(ctx, r.Counterpart(userID))
		if err != nil {
			o.log.Warn().Err(err).Int("user_id", r.Counterpart(userID)).Msg("skipping pairing with missing peer profile")
			continue
		}
		views = append(views, Match{
			PublicID: r.PublicID,
			Status:   r.Status,
			Score:    r.Score,
			Profile:  peer,
		})
	}
	return views
}

// eligibleCandidate applies the hard pre-filters that keep a profile
// out of the viewer's candidate universe entirely.
func eligibleCandidate(c Profile, pref Preference) bool {
	if !c.Active || c.Hidden {
		return false
	}
	if pref.Gender != "" && !equalNonEmptyFold(c.Gender, pref.Gender) {
		return false
	}
	return true
}

// parallelEach runs fn over [0,n) with bounded workers. Scoring is pure
// CPU work with no shared mutable state, so a plain index fan-out is
// enough.
func (o *MatchOrchestrator) parallelEach(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// dispatch fires a notification without blocking the caller. Delivery
// failures are logged and dropped.
func (o *MatchOrchestrator) dispatch(event string, fn func() error) {
	if o.notifier == nil {
		return
	}
	go func() {
		if err := fn(); err != nil {
			o.log.Warn().Err(err).Str("event", event).Msg("notification dispatch failed")
		}
	}()
}
