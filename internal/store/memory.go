// README: In-memory store for tests; RunInTx serializes on a coarse lock with snapshot rollback.
package store

import (
	"context"
	"sync"
	"time"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/modules/donation"
	"bloodlink/internal/modules/matching"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/modules/request"
	"bloodlink/internal/modules/response"
	"bloodlink/internal/sentinel"
	"bloodlink/internal/types"
)

type memData struct {
	profiles  map[types.ID]profile.Profile
	requests  map[types.ID]request.Request
	responses map[types.ID]response.Response
	donations []donation.Donation

	// insertion order, so list results are deterministic (storage order
	// is the documented tie-break for equidistant matches).
	profileOrder  []types.ID
	requestOrder  []types.ID
	responseOrder []types.ID
}

func newMemData() *memData {
	return &memData{
		profiles:  make(map[types.ID]profile.Profile),
		requests:  make(map[types.ID]request.Request),
		responses: make(map[types.ID]response.Response),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for id, p := range d.profiles {
		c.profiles[id] = p
	}
	for id, r := range d.requests {
		c.requests[id] = r
	}
	for id, r := range d.responses {
		c.responses[id] = r
	}
	c.donations = append([]donation.Donation(nil), d.donations...)
	c.profileOrder = append([]types.ID(nil), d.profileOrder...)
	c.requestOrder = append([]types.ID(nil), d.requestOrder...)
	c.responseOrder = append([]types.ID(nil), d.responseOrder...)
	return c
}

// Memory implements the same storage contract as Postgres, guarded by a
// single mutex. RunInTx holds the lock for the whole unit and restores a
// snapshot if the unit fails, mirroring a transaction rollback.
type Memory struct {
	mu   sync.Mutex
	data *memData
	// inTx marks a transaction-bound view whose methods must not re-lock.
	inTx bool
}

func NewMemory() *Memory {
	return &Memory{data: newMemData()}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) RunInTx(_ context.Context, fn func(response.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.data.clone()
	bound := &Memory{data: m.data, inTx: true}
	if err := fn(bound); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

// --- profiles ---

func (m *Memory) CreateProfile(_ context.Context, p *profile.Profile) error {
	defer m.lock()()
	if _, ok := m.data.profiles[p.ID]; ok {
		return sentinel.Wrap(sentinel.ErrConflict, "profile already exists")
	}
	m.data.profiles[p.ID] = *p
	m.data.profileOrder = append(m.data.profileOrder, p.ID)
	return nil
}

func (m *Memory) GetProfile(_ context.Context, id types.ID) (*profile.Profile, error) {
	defer m.lock()()
	p, ok := m.data.profiles[id]
	if !ok {
		return nil, sentinel.Wrap(sentinel.ErrNotFound, "profile")
	}
	return &p, nil
}

func (m *Memory) GetProfileByIdentity(_ context.Context, identityRef string) (*profile.Profile, error) {
	defer m.lock()()
	for _, id := range m.data.profileOrder {
		p := m.data.profiles[id]
		if p.IdentityRef == identityRef {
			return &p, nil
		}
	}
	return nil, sentinel.Wrap(sentinel.ErrNotFound, "profile")
}

func (m *Memory) ListDonorCandidates(_ context.Context, f matching.DonorFilter) ([]profile.Profile, error) {
	defer m.lock()()
	var idSet map[types.ID]bool
	if f.IDs != nil {
		idSet = make(map[types.ID]bool, len(f.IDs))
		for _, id := range f.IDs {
			idSet[id] = true
		}
	}
	var out []profile.Profile
	for _, id := range m.data.profileOrder {
		p := m.data.profiles[id]
		if p.Location == nil {
			continue
		}
		if f.AvailableOnly && !p.Available {
			continue
		}
		if f.Exclude != "" && p.ID == f.Exclude {
			continue
		}
		if idSet != nil && !idSet[p.ID] {
			continue
		}
		if len(f.Groups) > 0 && !containsGroup(f.Groups, p.BloodGroup) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) ListProfilesByIDs(_ context.Context, ids []types.ID) ([]profile.Profile, error) {
	defer m.lock()()
	var out []profile.Profile
	for _, id := range ids {
		if p, ok := m.data.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) UpdateProfileAvailability(_ context.Context, id types.ID, available bool) error {
	defer m.lock()()
	p, ok := m.data.profiles[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.Available = available
	p.UpdatedAt = time.Now()
	m.data.profiles[id] = p
	return nil
}

func (m *Memory) UpdateProfileLocation(_ context.Context, id types.ID, pt types.Point) error {
	defer m.lock()()
	p, ok := m.data.profiles[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	loc := pt
	p.Location = &loc
	p.UpdatedAt = time.Now()
	m.data.profiles[id] = p
	return nil
}

func (m *Memory) UpdateProfileLastDonation(_ context.Context, id types.ID, at time.Time) error {
	defer m.lock()()
	p, ok := m.data.profiles[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	when := at
	p.LastDonation = &when
	p.UpdatedAt = time.Now()
	m.data.profiles[id] = p
	return nil
}

// --- requests ---

func (m *Memory) CreateRequest(_ context.Context, r *request.Request) error {
	defer m.lock()()
	m.data.requests[r.ID] = *r
	m.data.requestOrder = append(m.data.requestOrder, r.ID)
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id types.ID) (*request.Request, error) {
	defer m.lock()()
	r, ok := m.data.requests[id]
	if !ok {
		return nil, sentinel.Wrap(sentinel.ErrNotFound, "request")
	}
	return &r, nil
}

func (m *Memory) ListRequestsByCreator(_ context.Context, creatorID types.ID) ([]request.Request, error) {
	defer m.lock()()
	var out []request.Request
	for _, id := range m.data.requestOrder {
		r := m.data.requests[id]
		if r.CreatorID == creatorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListActiveRequestCandidates(_ context.Context, group *blood.Group) ([]matching.RequestCandidate, error) {
	defer m.lock()()
	var out []matching.RequestCandidate
	for _, id := range m.data.requestOrder {
		r := m.data.requests[id]
		if r.Status != request.StatusActive {
			continue
		}
		if group != nil && r.BloodGroup != *group {
			continue
		}
		count := 0
		for _, respID := range m.data.responseOrder {
			if m.data.responses[respID].RequestID == r.ID {
				count++
			}
		}
		out = append(out, matching.RequestCandidate{
			ID:            r.ID,
			CreatorID:     r.CreatorID,
			PatientName:   r.PatientName,
			BloodGroup:    r.BloodGroup,
			Units:         r.Units,
			Urgency:       string(r.Urgency),
			Location:      r.Location,
			LocationName:  r.LocationName,
			CreatedAt:     r.CreatedAt,
			ResponseCount: count,
		})
	}
	return out, nil
}

func (m *Memory) UpdateRequestStatus(_ context.Context, id types.ID, from, to request.Status, fulfilledAt *time.Time) (bool, error) {
	defer m.lock()()
	r, ok := m.data.requests[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.FulfilledAt = fulfilledAt
	m.data.requests[id] = r
	return true, nil
}

func (m *Memory) DeleteRequest(_ context.Context, id types.ID) error {
	defer m.lock()()
	if _, ok := m.data.requests[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(m.data.requests, id)
	m.data.requestOrder = removeID(m.data.requestOrder, id)
	// cascade to responses, as the FK does in Postgres
	var keep []types.ID
	for _, respID := range m.data.responseOrder {
		if m.data.responses[respID].RequestID == id {
			delete(m.data.responses, respID)
			continue
		}
		keep = append(keep, respID)
	}
	m.data.responseOrder = keep
	return nil
}

// --- responses ---

func (m *Memory) CreateResponse(_ context.Context, r *response.Response) error {
	defer m.lock()()
	for _, id := range m.data.responseOrder {
		existing := m.data.responses[id]
		if existing.RequestID == r.RequestID && existing.DonorID == r.DonorID {
			return sentinel.Wrap(sentinel.ErrConflict, "donor already responded to this request")
		}
	}
	m.data.responses[r.ID] = *r
	m.data.responseOrder = append(m.data.responseOrder, r.ID)
	return nil
}

func (m *Memory) GetResponse(_ context.Context, id types.ID) (*response.Response, error) {
	defer m.lock()()
	r, ok := m.data.responses[id]
	if !ok {
		return nil, sentinel.Wrap(sentinel.ErrNotFound, "response")
	}
	return &r, nil
}

func (m *Memory) FindResponse(_ context.Context, requestID, donorID types.ID) (*response.Response, error) {
	defer m.lock()()
	for _, id := range m.data.responseOrder {
		r := m.data.responses[id]
		if r.RequestID == requestID && r.DonorID == donorID {
			return &r, nil
		}
	}
	return nil, sentinel.Wrap(sentinel.ErrNotFound, "response")
}

func (m *Memory) ListResponsesByRequest(_ context.Context, requestID types.ID) ([]response.Response, error) {
	defer m.lock()()
	var out []response.Response
	for _, id := range m.data.responseOrder {
		r := m.data.responses[id]
		if r.RequestID == requestID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) CountResponsesByRequest(ctx context.Context, requestID types.ID) (int, error) {
	rs, err := m.ListResponsesByRequest(ctx, requestID)
	return len(rs), err
}

func (m *Memory) UpdateResponseStatusIf(_ context.Context, id types.ID, from, to response.Status) (bool, error) {
	defer m.lock()()
	r, ok := m.data.responses[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	m.data.responses[id] = r
	return true, nil
}

func (m *Memory) UpdateResponseMessage(_ context.Context, id types.ID, message string) error {
	defer m.lock()()
	r, ok := m.data.responses[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.Message = message
	m.data.responses[id] = r
	return nil
}

func (m *Memory) DeleteResponse(_ context.Context, id types.ID) error {
	defer m.lock()()
	if _, ok := m.data.responses[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(m.data.responses, id)
	m.data.responseOrder = removeID(m.data.responseOrder, id)
	return nil
}

func (m *Memory) DeclineOtherPending(_ context.Context, requestID, exceptID types.ID) ([]types.ID, error) {
	defer m.lock()()
	var donors []types.ID
	for _, id := range m.data.responseOrder {
		r := m.data.responses[id]
		if r.RequestID != requestID || r.ID == exceptID || r.Status != response.StatusPending {
			continue
		}
		donors = append(donors, r.DonorID)
		r.Status = response.StatusDeclined
		m.data.responses[id] = r
	}
	return donors, nil
}

// --- donations ---

func (m *Memory) CreateDonation(_ context.Context, d *donation.Donation) error {
	defer m.lock()()
	m.data.donations = append(m.data.donations, *d)
	return nil
}

func (m *Memory) CountDonations(_ context.Context, donorID types.ID) (int, error) {
	defer m.lock()()
	n := 0
	for _, d := range m.data.donations {
		if d.DonorID == donorID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SumDonationUnits(_ context.Context, donorID types.ID) (int, error) {
	defer m.lock()()
	n := 0
	for _, d := range m.data.donations {
		if d.DonorID == donorID {
			n += d.Units
		}
	}
	return n, nil
}

// Donations returns a copy of the donation log, for test assertions.
func (m *Memory) Donations() []donation.Donation {
	defer m.lock()()
	return append([]donation.Donation(nil), m.data.donations...)
}

func containsGroup(groups []blood.Group, g blood.Group) bool {
	for _, x := range groups {
		if x == g {
			return true
		}
	}
	return false
}

func removeID(ids []types.ID, id types.ID) []types.ID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
