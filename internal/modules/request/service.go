// README: Request lifecycle manager: creation with donor fan-out, status transitions, deletion.
package request

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/modules/matching"
	"bloodlink/internal/notify"
	"bloodlink/internal/sentinel"
	"bloodlink/internal/types"
)

const (
	// fanoutRadiusKm is how far from the patient the creation-time donor
	// fan-out reaches.
	defaultFanoutRadiusKm = 20.0
	// fanoutLimit caps the fan-out to the nearest donors.
	defaultFanoutLimit = 20
)

// Store is the storage contract the lifecycle manager consumes.
type Store interface {
	CreateRequest(ctx context.Context, r *Request) error
	GetRequest(ctx context.Context, id types.ID) (*Request, error)
	ListRequestsByCreator(ctx context.Context, creatorID types.ID) ([]Request, error)
	// UpdateRequestStatus performs a compare-and-set transition and reports
	// whether the row was in the expected from state.
	UpdateRequestStatus(ctx context.Context, id types.ID, from, to Status, fulfilledAt *time.Time) (bool, error)
	DeleteRequest(ctx context.Context, id types.ID) error
}

// DonorFinder computes the creation-time notification fan-out.
type DonorFinder interface {
	FindDonors(ctx context.Context, q matching.DonorQuery) ([]matching.DonorMatch, error)
}

// FanoutRecorder remembers which donors were notified for a request.
// Best-effort; nil disables recording.
type FanoutRecorder interface {
	RecordFanout(ctx context.Context, requestID types.ID, donorIDs []types.ID) error
	FanoutDonors(ctx context.Context, requestID types.ID) ([]types.ID, error)
}

// Geocoder resolves coordinates to a human-readable place name. Best-effort;
// nil disables reverse geocoding.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p types.Point) (string, error)
}

type Config struct {
	FanoutRadiusKm float64
	FanoutLimit    int
}

type Service struct {
	store    Store
	matcher  DonorFinder
	fanout   FanoutRecorder
	geocoder Geocoder
	notifier notify.Notifier
	cfg      Config
	log      *zap.Logger
}

func NewService(store Store, matcher DonorFinder, fanout FanoutRecorder, geocoder Geocoder, notifier notify.Notifier, cfg Config, log *zap.Logger) *Service {
	if cfg.FanoutRadiusKm <= 0 {
		cfg.FanoutRadiusKm = defaultFanoutRadiusKm
	}
	if cfg.FanoutLimit <= 0 {
		cfg.FanoutLimit = defaultFanoutLimit
	}
	return &Service{store: store, matcher: matcher, fanout: fanout, geocoder: geocoder, notifier: notifier, cfg: cfg, log: log}
}

type CreateCommand struct {
	CreatorID    types.ID
	PatientName  string
	BloodGroup   string
	Units        int
	Urgency      string
	ContactPhone string
	Location     types.Point
	LocationName string
}

type CreateResult struct {
	Request           *Request
	MatchedDonorCount int
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Create validates and persists a new ACTIVE request, then computes the donor
// fan-out around the patient's coordinates and hands it to the notifier.
// Geocoding, fan-out, and notification failures never fail creation.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*CreateResult, error) {
	fields := map[string]string{}
	if cmd.PatientName == "" {
		fields["patient_name"] = "required"
	}
	group, err := blood.Parse(cmd.BloodGroup)
	if err != nil {
		fields["blood_group"] = "unknown blood group"
	}
	if cmd.Units < 1 || cmd.Units > 10 {
		fields["units"] = "must be between 1 and 10"
	}
	urgency := Urgency(cmd.Urgency)
	if !urgency.Valid() {
		fields["urgency"] = "must be one of critical, high, medium, low"
	}
	if !phonePattern.MatchString(cmd.ContactPhone) {
		fields["contact_phone"] = "invalid phone number"
	}
	if cmd.Location.Lat < -90 || cmd.Location.Lat > 90 || cmd.Location.Lng < -180 || cmd.Location.Lng > 180 {
		fields["location"] = "coordinates out of range"
	}

	locationName := cmd.LocationName
	if locationName == "" && s.geocoder != nil && len(fields) == 0 {
		if name, gerr := s.geocoder.ReverseGeocode(ctx, cmd.Location); gerr == nil {
			locationName = name
		} else {
			s.log.Warn("reverse geocode failed", zap.Error(gerr))
		}
	}
	if locationName == "" {
		fields["location_name"] = "required"
	}
	if len(fields) > 0 {
		return nil, &sentinel.ValidationError{Fields: fields}
	}

	r := &Request{
		ID:           types.ID(uuid.NewString()),
		CreatorID:    cmd.CreatorID,
		PatientName:  cmd.PatientName,
		BloodGroup:   group,
		Units:        cmd.Units,
		Urgency:      urgency,
		ContactPhone: cmd.ContactPhone,
		Location:     cmd.Location,
		LocationName: locationName,
		Status:       StatusActive,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateRequest(ctx, r); err != nil {
		return nil, err
	}

	matched := s.fanOut(ctx, r)
	return &CreateResult{Request: r, MatchedDonorCount: matched}, nil
}

// fanOut finds compatible available donors near the patient and notifies them.
func (s *Service) fanOut(ctx context.Context, r *Request) int {
	matches, err := s.matcher.FindDonors(ctx, matching.DonorQuery{
		Origin:         r.Location,
		CompatibleWith: &r.BloodGroup,
		RadiusKm:       s.cfg.FanoutRadiusKm,
		AvailableOnly:  true,
		Exclude:        r.CreatorID,
		Limit:          s.cfg.FanoutLimit,
	})
	if err != nil {
		s.log.Warn("donor fan-out failed", zap.String("request_id", string(r.ID)), zap.Error(err))
		return 0
	}
	if len(matches) == 0 {
		return 0
	}

	msgs := make([]notify.Message, 0, len(matches))
	ids := make([]types.ID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ProfileID)
		msgs = append(msgs, notify.Message{
			To:   m.Email,
			Kind: notify.KindNewRequest,
			Data: map[string]string{
				"patient_name": r.PatientName,
				"blood_group":  string(r.BloodGroup),
				"units":        strconv.Itoa(r.Units),
				"location":     r.LocationName,
				"distance_km":  strconv.FormatFloat(m.DistanceKm, 'f', 1, 64),
			},
		})
	}
	if s.fanout != nil {
		if err := s.fanout.RecordFanout(ctx, r.ID, ids); err != nil {
			s.log.Warn("fan-out recording failed", zap.String("request_id", string(r.ID)), zap.Error(err))
		}
	}
	if err := s.notifier.NotifyBatch(ctx, msgs); err != nil {
		s.log.Warn("fan-out notification failed", zap.String("request_id", string(r.ID)), zap.Error(err))
	}
	return len(matches)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Request, error) {
	return s.store.GetRequest(ctx, id)
}

func (s *Service) ListByCreator(ctx context.Context, creatorID types.ID) ([]Request, error) {
	return s.store.ListRequestsByCreator(ctx, creatorID)
}

// UpdateStatus transitions a request. Only the creator may do this. Setting
// FULFILLED stamps FulfilledAt; any other target clears it.
func (s *Service) UpdateStatus(ctx context.Context, id, actorID types.ID, to Status) error {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if r.CreatorID != actorID {
		return sentinel.Wrap(sentinel.ErrPermissionDenied, "only the creator may update a request")
	}
	if !CanTransition(r.Status, to) {
		return sentinel.Wrap(sentinel.ErrInvalidState, "cannot move request from "+string(r.Status)+" to "+string(to))
	}
	var fulfilledAt *time.Time
	if to == StatusFulfilled {
		now := time.Now()
		fulfilledAt = &now
	}
	ok, err := s.store.UpdateRequestStatus(ctx, id, r.Status, to, fulfilledAt)
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.Wrap(sentinel.ErrConflict, "request changed concurrently")
	}
	return nil
}

// Cancel is a status update to CANCELLED. Pending responses are left as they
// are; only an acceptance resolves them.
func (s *Service) Cancel(ctx context.Context, id, actorID types.ID) error {
	return s.UpdateStatus(ctx, id, actorID, StatusCancelled)
}

// NotifiedDonors returns the ids of donors reached by the creation-time
// fan-out, for the creator's view. Empty when fan-out recording is disabled
// or the record has expired.
func (s *Service) NotifiedDonors(ctx context.Context, id, actorID types.ID) ([]types.ID, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.CreatorID != actorID {
		return nil, sentinel.Wrap(sentinel.ErrPermissionDenied, "only the creator may view the fan-out")
	}
	if s.fanout == nil {
		return nil, nil
	}
	return s.fanout.FanoutDonors(ctx, id)
}

// Delete removes a request and, via the storage layer, its responses.
func (s *Service) Delete(ctx context.Context, id, actorID types.ID) error {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if r.CreatorID != actorID {
		return sentinel.Wrap(sentinel.ErrPermissionDenied, "only the creator may delete a request")
	}
	return s.store.DeleteRequest(ctx, id)
}
