// README: Response resolution engine: submit, atomic accept, decline, edit, withdraw.
package response

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/modules/donation"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/modules/request"
	"bloodlink/internal/notify"
	"bloodlink/internal/sentinel"
	"bloodlink/internal/types"
)

// TxStore is the slice of the storage contract that must execute inside one
// transactional unit during Accept.
type TxStore interface {
	GetRequest(ctx context.Context, id types.ID) (*request.Request, error)
	GetResponse(ctx context.Context, id types.ID) (*Response, error)
	// UpdateResponseStatusIf is a compare-and-set transition on one response.
	UpdateResponseStatusIf(ctx context.Context, id types.ID, from, to Status) (bool, error)
	// UpdateRequestStatus is a compare-and-set transition on the request row;
	// a false return means the request left the from state concurrently.
	UpdateRequestStatus(ctx context.Context, id types.ID, from, to request.Status, fulfilledAt *time.Time) (bool, error)
	UpdateProfileLastDonation(ctx context.Context, id types.ID, at time.Time) error
	CreateDonation(ctx context.Context, d *donation.Donation) error
	// DeclineOtherPending flips every other PENDING response on the request
	// to DECLINED and returns the affected donor ids.
	DeclineOtherPending(ctx context.Context, requestID, exceptID types.ID) ([]types.ID, error)
}

// Store is the full storage contract the engine consumes. RunInTx provides the
// all-or-nothing boundary around the Accept mutation set.
type Store interface {
	TxStore
	RunInTx(ctx context.Context, fn func(TxStore) error) error
	CreateResponse(ctx context.Context, r *Response) error
	FindResponse(ctx context.Context, requestID, donorID types.ID) (*Response, error)
	UpdateResponseMessage(ctx context.Context, id types.ID, message string) error
	DeleteResponse(ctx context.Context, id types.ID) error
	ListResponsesByRequest(ctx context.Context, requestID types.ID) ([]Response, error)
	GetProfile(ctx context.Context, id types.ID) (*profile.Profile, error)
	ListProfilesByIDs(ctx context.Context, ids []types.ID) ([]profile.Profile, error)
}

type Service struct {
	store    Store
	notifier notify.Notifier
	log      *zap.Logger
}

func NewService(store Store, notifier notify.Notifier, log *zap.Logger) *Service {
	return &Service{store: store, notifier: notifier, log: log}
}

// Submit creates a PENDING response from a donor against an ACTIVE request.
// Uniqueness per (request, donor) is enforced by the storage layer, not by a
// pre-check, so two near-simultaneous submissions cannot both slip through.
func (s *Service) Submit(ctx context.Context, requestID, donorID types.ID, message string) (*Response, error) {
	if len(message) > MaxMessageLen {
		return nil, sentinel.NewValidation("message", "must be at most 500 characters")
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CreatorID == donorID {
		return nil, sentinel.NewValidation("donor", "cannot respond to your own request")
	}
	if req.Status != request.StatusActive {
		return nil, sentinel.Wrap(sentinel.ErrInvalidState, "request is no longer active")
	}

	r := &Response{
		ID:        types.ID(uuid.NewString()),
		RequestID: requestID,
		DonorID:   donorID,
		Message:   message,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateResponse(ctx, r); err != nil {
		return nil, err
	}

	s.notifyCreator(ctx, req, donorID, message)
	return r, nil
}

// Accept resolves a response in the creator's favour. The five mutations
// (response accepted, donor eligibility stamped, donation recorded, request
// fulfilled, competing responses declined) commit together or not at all.
// Under concurrent accepts the request-row compare-and-set guarantees at most
// one winner; losers surface ErrConflict with nothing applied.
func (s *Service) Accept(ctx context.Context, responseID, actorID types.ID) (*AcceptResult, error) {
	resp, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, resp.RequestID)
	if err != nil {
		return nil, err
	}
	if req.CreatorID != actorID {
		return nil, sentinel.Wrap(sentinel.ErrPermissionDenied, "only the request creator may accept")
	}
	if req.Status != request.StatusActive {
		return nil, sentinel.Wrap(sentinel.ErrInvalidState, "request is no longer active")
	}
	if resp.Status != StatusPending {
		return nil, sentinel.Wrap(sentinel.ErrInvalidState, "response already resolved")
	}

	now := time.Now()
	var declinedDonors []types.ID
	err = s.store.RunInTx(ctx, func(tx TxStore) error {
		// The request row is the serialization point: concurrent accepts
		// queue on this compare-and-set and exactly one observes ACTIVE.
		ok, err := tx.UpdateRequestStatus(ctx, req.ID, request.StatusActive, request.StatusFulfilled, &now)
		if err != nil {
			return err
		}
		if !ok {
			return sentinel.Wrap(sentinel.ErrConflict, "request fulfilled concurrently")
		}
		ok, err = tx.UpdateResponseStatusIf(ctx, resp.ID, StatusPending, StatusAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return sentinel.Wrap(sentinel.ErrConflict, "response resolved concurrently")
		}
		if err := tx.UpdateProfileLastDonation(ctx, resp.DonorID, now); err != nil {
			return err
		}
		reqID := req.ID
		if err := tx.CreateDonation(ctx, &donation.Donation{
			ID:        types.ID(uuid.NewString()),
			DonorID:   resp.DonorID,
			RequestID: &reqID,
			DonatedAt: now,
			Units:     req.Units,
		}); err != nil {
			return err
		}
		declinedDonors, err = tx.DeclineOtherPending(ctx, req.ID, resp.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	donor := s.notifyAccepted(ctx, req, resp.DonorID)
	s.notifyDeclinedBatch(ctx, req, declinedDonors)

	result := &AcceptResult{ResponseID: resp.ID, DonorID: resp.DonorID, Units: req.Units}
	if donor != nil {
		result.DonorName = donor.Name
	}
	return result, nil
}

// Decline resolves a single PENDING response against the donor. Nothing else
// changes: the request stays ACTIVE and other responses are untouched.
func (s *Service) Decline(ctx context.Context, responseID, actorID types.ID) error {
	resp, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return err
	}
	req, err := s.store.GetRequest(ctx, resp.RequestID)
	if err != nil {
		return err
	}
	if req.CreatorID != actorID {
		return sentinel.Wrap(sentinel.ErrPermissionDenied, "only the request creator may decline")
	}
	if req.Status != request.StatusActive {
		return sentinel.Wrap(sentinel.ErrInvalidState, "request is no longer active")
	}
	if resp.Status != StatusPending {
		return sentinel.Wrap(sentinel.ErrInvalidState, "response already resolved")
	}
	ok, err := s.store.UpdateResponseStatusIf(ctx, resp.ID, StatusPending, StatusDeclined)
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.Wrap(sentinel.ErrConflict, "response resolved concurrently")
	}

	if donor, derr := s.store.GetProfile(ctx, resp.DonorID); derr == nil {
		s.send(ctx, notify.Message{
			To:   donor.Email,
			Kind: notify.KindDeclined,
			Data: map[string]string{"patient_name": req.PatientName},
		})
	}
	return nil
}

// EditMessage updates a donor's own response message. ACCEPTED responses are
// frozen; DECLINED ones may still be edited.
func (s *Service) EditMessage(ctx context.Context, responseID, actorID types.ID, message string) error {
	if len(message) > MaxMessageLen {
		return sentinel.NewValidation("message", "must be at most 500 characters")
	}
	resp, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return err
	}
	if resp.DonorID != actorID {
		return sentinel.Wrap(sentinel.ErrPermissionDenied, "only the responding donor may edit")
	}
	if resp.Status == StatusAccepted {
		return sentinel.Wrap(sentinel.ErrInvalidState, "accepted responses cannot be edited")
	}
	return s.store.UpdateResponseMessage(ctx, responseID, message)
}

// Withdraw hard-deletes a donor's own response. An accepted, fulfilling
// donation cannot be retracted.
func (s *Service) Withdraw(ctx context.Context, responseID, actorID types.ID) error {
	resp, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return err
	}
	if resp.DonorID != actorID {
		return sentinel.Wrap(sentinel.ErrPermissionDenied, "only the responding donor may withdraw")
	}
	if resp.Status == StatusAccepted {
		return sentinel.Wrap(sentinel.ErrInvalidState, "accepted responses cannot be withdrawn")
	}
	return s.store.DeleteResponse(ctx, responseID)
}

// ListForRequest returns a request's responses joined with donor details, for
// the creator's dashboard.
func (s *Service) ListForRequest(ctx context.Context, requestID, actorID types.ID) ([]WithDonor, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CreatorID != actorID {
		return nil, sentinel.Wrap(sentinel.ErrPermissionDenied, "only the request creator may list responses")
	}
	responses, err := s.store.ListResponsesByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(responses))
	for i, r := range responses {
		ids[i] = r.DonorID
	}
	donors, err := s.store.ListProfilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[types.ID]profile.Profile, len(donors))
	for _, d := range donors {
		byID[d.ID] = d
	}
	out := make([]WithDonor, len(responses))
	for i, r := range responses {
		d := byID[r.DonorID]
		out[i] = WithDonor{Response: r, DonorName: d.Name, DonorPhone: d.Phone, DonorGroup: d.BloodGroup}
	}
	return out, nil
}

func (s *Service) notifyCreator(ctx context.Context, req *request.Request, donorID types.ID, message string) {
	creator, err := s.store.GetProfile(ctx, req.CreatorID)
	if err != nil {
		s.log.Warn("creator lookup for notification failed", zap.Error(err))
		return
	}
	donorName := "A donor"
	if donor, err := s.store.GetProfile(ctx, donorID); err == nil {
		donorName = donor.Name
	}
	s.send(ctx, notify.Message{
		To:   creator.Email,
		Kind: notify.KindNewResponse,
		Data: map[string]string{
			"patient_name": req.PatientName,
			"donor_name":   donorName,
			"message":      message,
		},
	})
}

func (s *Service) notifyAccepted(ctx context.Context, req *request.Request, donorID types.ID) *profile.Profile {
	donor, err := s.store.GetProfile(ctx, donorID)
	if err != nil {
		s.log.Warn("accepted donor lookup failed", zap.Error(err))
		return nil
	}
	s.send(ctx, notify.Message{
		To:   donor.Email,
		Kind: notify.KindAccepted,
		Data: map[string]string{
			"patient_name": req.PatientName,
			"units":        strconv.Itoa(req.Units),
		},
	})
	return donor
}

func (s *Service) notifyDeclinedBatch(ctx context.Context, req *request.Request, donorIDs []types.ID) {
	if len(donorIDs) == 0 {
		return
	}
	donors, err := s.store.ListProfilesByIDs(ctx, donorIDs)
	if err != nil {
		s.log.Warn("declined donor lookup failed", zap.Error(err))
		return
	}
	msgs := make([]notify.Message, 0, len(donors))
	for _, d := range donors {
		msgs = append(msgs, notify.Message{
			To:   d.Email,
			Kind: notify.KindFulfilledElsewhere,
			Data: map[string]string{"patient_name": req.PatientName},
		})
	}
	if err := s.notifier.NotifyBatch(ctx, msgs); err != nil {
		s.log.Warn("declined batch notification failed", zap.Error(err))
	}
}

func (s *Service) send(ctx context.Context, m notify.Message) {
	if err := s.notifier.Notify(ctx, m); err != nil {
		s.log.Warn("notification failed", zap.String("kind", string(m.Kind)), zap.Error(err))
	}
}
