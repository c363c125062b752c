package matchcore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory MatchStore for engine tests. A single mutex
// stands in for the row locks: closures run serialized, so a concurrent
// writer always observes the previous writer's committed state.
type memStore struct {
	mu      sync.Mutex
	byPair  map[[2]int]string
	ledger  map[string]*LedgerRow
	reqs    []*RequestRow
	nextLID int
	nextRID int
	now     func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		byPair: make(map[[2]int]string),
		ledger: make(map[string]*LedgerRow),
		now:    time.Now,
	}
}

type memPairTx struct {
	s   *memStore
	row *LedgerRow // stored row, mutate in place
}

func (m *memStore) UpdatePair(ctx context.Context, a, b int, fn func(PairTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lo, hi := pairKey(a, b)
	var row *LedgerRow
	if pid, ok := m.byPair[[2]int{lo, hi}]; ok {
		row = m.ledger[pid]
	}
	return fn(&memPairTx{s: m, row: row})
}

func (m *memStore) UpdateByPublicID(ctx context.Context, publicID string, fn func(PairTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memPairTx{s: m, row: m.ledger[publicID]})
}

func (m *memStore) FindPair(ctx context.Context, a, b int) (*LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lo, hi := pairKey(a, b)
	pid, ok := m.byPair[[2]int{lo, hi}]
	if !ok {
		return nil, nil
	}
	cp := *m.ledger[pid]
	return &cp, nil
}

func (m *memStore) LedgerByPublicID(ctx context.Context, publicID string) (*LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.ledger[publicID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memStore) LinkedUserIDs(ctx context.Context, userID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for _, row := range m.ledger {
		if row.ViewerUserID == userID {
			ids = append(ids, row.CandidateUserID)
		} else if row.CandidateUserID == userID {
			ids = append(ids, row.ViewerUserID)
		}
	}
	return ids, nil
}

func (m *memStore) RequestsFrom(ctx context.Context, userID int, statuses ...RequestStatus) ([]RequestRow, error) {
	return m.filterRequests(func(r *RequestRow) bool { return r.FromUserID == userID }, statuses), nil
}

func (m *memStore) RequestsTo(ctx context.Context, userID int, statuses ...RequestStatus) ([]RequestRow, error) {
	return m.filterRequests(func(r *RequestRow) bool { return r.ToUserID == userID }, statuses), nil
}

func (m *memStore) filterRequests(match func(*RequestRow) bool, statuses []RequestStatus) []RequestRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RequestRow
	for _, r := range m.reqs {
		if !match(r) {
			continue
		}
		if len(statuses) > 0 && !containsRequestStatus(statuses, r.Status) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memStore) LedgerForUser(ctx context.Context, userID int, statuses ...LedgerStatus) ([]LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LedgerRow
	for _, row := range m.ledger {
		if row.ViewerUserID != userID && row.CandidateUserID != userID {
			continue
		}
		if len(statuses) > 0 && !containsLedgerStatus(statuses, row.Status) {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ledgerCount reports the number of ledger rows (test assertions).
func (m *memStore) ledgerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ledger)
}

// requestRows returns copies of every request row (test assertions).
func (m *memStore) requestRows() []RequestRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RequestRow, 0, len(m.reqs))
	for _, r := range m.reqs {
		out = append(out, *r)
	}
	return out
}

func (t *memPairTx) Ledger() *LedgerRow {
	if t.row == nil {
		return nil
	}
	cp := *t.row
	return &cp
}

func (t *memPairTx) CreateLedger(viewerID, candidateID int, status LedgerStatus, score float64) (*LedgerRow, error) {
	t.s.nextLID++
	now := t.s.now()
	row := &LedgerRow{
		ID:              t.s.nextLID,
		PublicID:        NewPublicID(),
		ViewerUserID:    viewerID,
		CandidateUserID: candidateID,
		Status:          status,
		Score:           score,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	lo, hi := pairKey(viewerID, candidateID)
	t.s.byPair[[2]int{lo, hi}] = row.PublicID
	t.s.ledger[row.PublicID] = row
	t.row = row
	cp := *row
	return &cp, nil
}

func (t *memPairTx) SetLedgerStatus(status LedgerStatus) error {
	t.row.Status = status
	t.row.UpdatedAt = t.s.now()
	return nil
}

func (t *memPairTx) Requests() ([]RequestRow, error) {
	var out []RequestRow
	for _, r := range t.s.reqs {
		if r.PublicID == t.row.PublicID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memPairTx) AppendRequest(fromUserID, toUserID int, status RequestStatus) (*RequestRow, error) {
	t.s.nextRID++
	now := t.s.now()
	r := &RequestRow{
		ID:         t.s.nextRID,
		PublicID:   t.row.PublicID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     status,
		SentAt:     now,
		UpdatedAt:  now,
	}
	t.s.reqs = append(t.s.reqs, r)
	cp := *r
	return &cp, nil
}

func (t *memPairTx) SetRequestStatus(requestID int, status RequestStatus) error {
	for _, r := range t.s.reqs {
		if r.ID == requestID {
			r.Status = status
			r.UpdatedAt = t.s.now()
			return nil
		}
	}
	return notFoundf("memPairTx.SetRequestStatus", "request %d", requestID)
}

func containsRequestStatus(set []RequestStatus, s RequestStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsLedgerStatus(set []LedgerStatus, s LedgerStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// stubProfiles is an in-memory ProfileStore.
type stubProfiles struct {
	profiles map[int]Profile
	prefs    map[int]Preference
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{
		profiles: make(map[int]Profile),
		prefs:    make(map[int]Preference),
	}
}

func (s *stubProfiles) add(p Profile) {
	s.profiles[p.UserID] = p
}

func (s *stubProfiles) setPref(p Preference) {
	s.prefs[p.UserID] = p
}

func (s *stubProfiles) GetProfile(ctx context.Context, userID int) (Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, notFoundf("stubProfiles.GetProfile", "user %d", userID)
	}
	return p, nil
}

func (s *stubProfiles) GetPreference(ctx context.Context, userID int) (Preference, error) {
	p, ok := s.prefs[userID]
	if !ok {
		return Preference{}, notFoundf("stubProfiles.GetPreference", "user %d", userID)
	}
	return p, nil
}

func (s *stubProfiles) ListActiveCandidates(ctx context.Context, excludeUserID int) ([]Profile, error) {
	var out []Profile
	for _, p := range s.profiles {
		if p.UserID == excludeUserID || !p.Active || p.Hidden {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// captureNotifier records dispatched notifications for tests.
type captureNotifier struct {
	mu     sync.Mutex
	events chan string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{events: make(chan string, 16)}
}

func (n *captureNotifier) NotifyNewMatch(viewerID, candidateID int) error {
	n.events <- "new_match"
	return nil
}

func (n *captureNotifier) NotifyMutualMatch(a, b int) error {
	n.events <- "mutual_match"
	return nil
}
