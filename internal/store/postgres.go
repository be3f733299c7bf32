// README: Postgres storage backed by pgxpool; RunInTx wraps mutations in one transaction.
package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/modules/donation"
	"bloodlink/internal/modules/matching"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/modules/request"
	"bloodlink/internal/modules/response"
	"bloodlink/internal/sentinel"
	"bloodlink/internal/types"
)

const uniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: pool}
}

// RunInTx executes fn against a transaction-bound view of the store. Any error
// from fn rolls the whole unit back.
func (p *Postgres) RunInTx(ctx context.Context, fn func(response.TxStore) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	bound := &Postgres{pool: p.pool, q: tx}
	if err := fn(bound); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// --- profiles ---

const profileColumns = `id, identity_ref, name, phone, email, blood_group, lat, lng, available, last_donation, created_at, updated_at`

func (p *Postgres) CreateProfile(ctx context.Context, pr *profile.Profile) error {
	var lat, lng *float64
	if pr.Location != nil {
		lat, lng = &pr.Location.Lat, &pr.Location.Lng
	}
	_, err := p.q.Exec(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(pr.ID), pr.IdentityRef, pr.Name, pr.Phone, pr.Email, string(pr.BloodGroup),
		lat, lng, pr.Available, pr.LastDonation, pr.CreatedAt, pr.UpdatedAt,
	)
	if isUnique(err) {
		return sentinel.Wrap(sentinel.ErrConflict, "profile already exists")
	}
	return err
}

func (p *Postgres) GetProfile(ctx context.Context, id types.ID) (*profile.Profile, error) {
	return p.scanProfile(p.q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, string(id)))
}

func (p *Postgres) GetProfileByIdentity(ctx context.Context, identityRef string) (*profile.Profile, error) {
	return p.scanProfile(p.q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE identity_ref = $1`, identityRef))
}

func (p *Postgres) scanProfile(row pgx.Row) (*profile.Profile, error) {
	var pr profile.Profile
	var group string
	var lat, lng *float64
	err := row.Scan(&pr.ID, &pr.IdentityRef, &pr.Name, &pr.Phone, &pr.Email, &group,
		&lat, &lng, &pr.Available, &pr.LastDonation, &pr.CreatedAt, &pr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.Wrap(sentinel.ErrNotFound, "profile")
	}
	if err != nil {
		return nil, err
	}
	pr.BloodGroup = blood.Group(group)
	if lat != nil && lng != nil {
		pr.Location = &types.Point{Lat: *lat, Lng: *lng}
	}
	return &pr, nil
}

func (p *Postgres) ListDonorCandidates(ctx context.Context, f matching.DonorFilter) ([]profile.Profile, error) {
	sql := `SELECT ` + profileColumns + ` FROM profiles WHERE lat IS NOT NULL AND lng IS NOT NULL`
	args := []any{}
	n := 0
	next := func(v any) string {
		n++
		args = append(args, v)
		return "$" + strconv.Itoa(n)
	}
	if f.AvailableOnly {
		sql += ` AND available = TRUE`
	}
	if len(f.Groups) > 0 {
		groups := make([]string, len(f.Groups))
		for i, g := range f.Groups {
			groups[i] = string(g)
		}
		sql += ` AND blood_group = ANY(` + next(groups) + `)`
	}
	if f.Exclude != "" {
		sql += ` AND id <> ` + next(string(f.Exclude))
	}
	if f.IDs != nil {
		ids := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			ids[i] = string(id)
		}
		sql += ` AND id = ANY(` + next(ids) + `)`
	}
	sql += ` ORDER BY created_at, id`

	rows, err := p.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []profile.Profile
	for rows.Next() {
		var pr profile.Profile
		var group string
		var lat, lng *float64
		if err := rows.Scan(&pr.ID, &pr.IdentityRef, &pr.Name, &pr.Phone, &pr.Email, &group,
			&lat, &lng, &pr.Available, &pr.LastDonation, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		pr.BloodGroup = blood.Group(group)
		if lat != nil && lng != nil {
			pr.Location = &types.Point{Lat: *lat, Lng: *lng}
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *Postgres) ListProfilesByIDs(ctx context.Context, ids []types.ID) ([]profile.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := p.q.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, raw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []profile.Profile
	for rows.Next() {
		var pr profile.Profile
		var group string
		var lat, lng *float64
		if err := rows.Scan(&pr.ID, &pr.IdentityRef, &pr.Name, &pr.Phone, &pr.Email, &group,
			&lat, &lng, &pr.Available, &pr.LastDonation, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		pr.BloodGroup = blood.Group(group)
		if lat != nil && lng != nil {
			pr.Location = &types.Point{Lat: *lat, Lng: *lng}
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateProfileAvailability(ctx context.Context, id types.ID, available bool) error {
	return p.execOne(ctx, `UPDATE profiles SET available = $1, updated_at = NOW() WHERE id = $2`, available, string(id))
}

func (p *Postgres) UpdateProfileLocation(ctx context.Context, id types.ID, pt types.Point) error {
	return p.execOne(ctx, `UPDATE profiles SET lat = $1, lng = $2, updated_at = NOW() WHERE id = $3`, pt.Lat, pt.Lng, string(id))
}

func (p *Postgres) UpdateProfileLastDonation(ctx context.Context, id types.ID, at time.Time) error {
	return p.execOne(ctx, `UPDATE profiles SET last_donation = $1, updated_at = NOW() WHERE id = $2`, at, string(id))
}

// --- requests ---

const requestColumns = `id, creator_id, patient_name, blood_group, units, urgency, contact_phone, lat, lng, location_name, status, created_at, fulfilled_at`

func (p *Postgres) CreateRequest(ctx context.Context, r *request.Request) error {
	_, err := p.q.Exec(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(r.ID), string(r.CreatorID), r.PatientName, string(r.BloodGroup), r.Units,
		string(r.Urgency), r.ContactPhone, r.Location.Lat, r.Location.Lng, r.LocationName,
		string(r.Status), r.CreatedAt, r.FulfilledAt,
	)
	return err
}

func (p *Postgres) GetRequest(ctx context.Context, id types.ID) (*request.Request, error) {
	row := p.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, string(id))
	r, err := scanRequest(row)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func scanRequest(row pgx.Row) (*request.Request, error) {
	var r request.Request
	var group, urgency, status string
	err := row.Scan(&r.ID, &r.CreatorID, &r.PatientName, &group, &r.Units, &urgency,
		&r.ContactPhone, &r.Location.Lat, &r.Location.Lng, &r.LocationName, &status,
		&r.CreatedAt, &r.FulfilledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.Wrap(sentinel.ErrNotFound, "request")
	}
	if err != nil {
		return nil, err
	}
	r.BloodGroup = blood.Group(group)
	r.Urgency = request.Urgency(urgency)
	r.Status = request.Status(status)
	return &r, nil
}

func (p *Postgres) ListRequestsByCreator(ctx context.Context, creatorID types.ID) ([]request.Request, error) {
	rows, err := p.q.Query(ctx, `SELECT `+requestColumns+` FROM requests WHERE creator_id = $1 ORDER BY created_at DESC`, string(creatorID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []request.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (p *Postgres) ListActiveRequestCandidates(ctx context.Context, group *blood.Group) ([]matching.RequestCandidate, error) {
	sql := `
		SELECT r.id, r.creator_id, r.patient_name, r.blood_group, r.units, r.urgency,
		       r.lat, r.lng, r.location_name, r.created_at,
		       (SELECT COUNT(*) FROM responses WHERE request_id = r.id)
		FROM requests r
		WHERE r.status = 'active'`
	args := []any{}
	if group != nil {
		sql += ` AND r.blood_group = $1`
		args = append(args, string(*group))
	}
	sql += ` ORDER BY r.created_at, r.id`

	rows, err := p.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matching.RequestCandidate
	for rows.Next() {
		var c matching.RequestCandidate
		var g string
		if err := rows.Scan(&c.ID, &c.CreatorID, &c.PatientName, &g, &c.Units, &c.Urgency,
			&c.Location.Lat, &c.Location.Lng, &c.LocationName, &c.CreatedAt, &c.ResponseCount); err != nil {
			return nil, err
		}
		c.BloodGroup = blood.Group(g)
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateRequestStatus is a compare-and-set transition: the row must still be
// in the from state or nothing happens and false is returned.
func (p *Postgres) UpdateRequestStatus(ctx context.Context, id types.ID, from, to request.Status, fulfilledAt *time.Time) (bool, error) {
	tag, err := p.q.Exec(ctx, `
		UPDATE requests SET status = $1, fulfilled_at = $2
		WHERE id = $3 AND status = $4`,
		string(to), fulfilledAt, string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) DeleteRequest(ctx context.Context, id types.ID) error {
	// responses cascade via FK
	return p.execOne(ctx, `DELETE FROM requests WHERE id = $1`, string(id))
}

// --- responses ---

const responseColumns = `id, request_id, donor_id, message, status, created_at`

func (p *Postgres) CreateResponse(ctx context.Context, r *response.Response) error {
	_, err := p.q.Exec(ctx, `
		INSERT INTO responses (`+responseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(r.ID), string(r.RequestID), string(r.DonorID), r.Message, string(r.Status), r.CreatedAt,
	)
	if isUnique(err) {
		return sentinel.Wrap(sentinel.ErrConflict, "donor already responded to this request")
	}
	return err
}

func (p *Postgres) GetResponse(ctx context.Context, id types.ID) (*response.Response, error) {
	return scanResponse(p.q.QueryRow(ctx, `SELECT `+responseColumns+` FROM responses WHERE id = $1`, string(id)))
}

func (p *Postgres) FindResponse(ctx context.Context, requestID, donorID types.ID) (*response.Response, error) {
	return scanResponse(p.q.QueryRow(ctx,
		`SELECT `+responseColumns+` FROM responses WHERE request_id = $1 AND donor_id = $2`,
		string(requestID), string(donorID)))
}

func scanResponse(row pgx.Row) (*response.Response, error) {
	var r response.Response
	var status string
	err := row.Scan(&r.ID, &r.RequestID, &r.DonorID, &r.Message, &status, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.Wrap(sentinel.ErrNotFound, "response")
	}
	if err != nil {
		return nil, err
	}
	r.Status = response.Status(status)
	return &r, nil
}

func (p *Postgres) ListResponsesByRequest(ctx context.Context, requestID types.ID) ([]response.Response, error) {
	rows, err := p.q.Query(ctx,
		`SELECT `+responseColumns+` FROM responses WHERE request_id = $1 ORDER BY created_at, id`,
		string(requestID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []response.Response
	for rows.Next() {
		var r response.Response
		var status string
		if err := rows.Scan(&r.ID, &r.RequestID, &r.DonorID, &r.Message, &status, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Status = response.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) CountResponsesByRequest(ctx context.Context, requestID types.ID) (int, error) {
	var n int
	err := p.q.QueryRow(ctx, `SELECT COUNT(*) FROM responses WHERE request_id = $1`, string(requestID)).Scan(&n)
	return n, err
}

func (p *Postgres) UpdateResponseStatusIf(ctx context.Context, id types.ID, from, to response.Status) (bool, error) {
	tag, err := p.q.Exec(ctx,
		`UPDATE responses SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) UpdateResponseMessage(ctx context.Context, id types.ID, message string) error {
	return p.execOne(ctx, `UPDATE responses SET message = $1 WHERE id = $2`, message, string(id))
}

func (p *Postgres) DeleteResponse(ctx context.Context, id types.ID) error {
	return p.execOne(ctx, `DELETE FROM responses WHERE id = $1`, string(id))
}

// DeclineOtherPending flips every other PENDING response on the request to
// DECLINED, returning the affected donor ids for post-commit notification.
func (p *Postgres) DeclineOtherPending(ctx context.Context, requestID, exceptID types.ID) ([]types.ID, error) {
	rows, err := p.q.Query(ctx, `
		UPDATE responses SET status = 'declined'
		WHERE request_id = $1 AND id <> $2 AND status = 'pending'
		RETURNING donor_id`,
		string(requestID), string(exceptID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donors []types.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		donors = append(donors, types.ID(id))
	}
	return donors, rows.Err()
}

// --- donations ---

func (p *Postgres) CreateDonation(ctx context.Context, d *donation.Donation) error {
	var reqID *string
	if d.RequestID != nil {
		v := string(*d.RequestID)
		reqID = &v
	}
	_, err := p.q.Exec(ctx, `
		INSERT INTO donations (id, donor_id, request_id, donated_at, units)
		VALUES ($1, $2, $3, $4, $5)`,
		string(d.ID), string(d.DonorID), reqID, d.DonatedAt, d.Units,
	)
	return err
}

func (p *Postgres) CountDonations(ctx context.Context, donorID types.ID) (int, error) {
	var n int
	err := p.q.QueryRow(ctx, `SELECT COUNT(*) FROM donations WHERE donor_id = $1`, string(donorID)).Scan(&n)
	return n, err
}

func (p *Postgres) SumDonationUnits(ctx context.Context, donorID types.ID) (int, error) {
	var n int
	err := p.q.QueryRow(ctx, `SELECT COALESCE(SUM(units), 0) FROM donations WHERE donor_id = $1`, string(donorID)).Scan(&n)
	return n, err
}

// --- helpers ---

func (p *Postgres) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := p.q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

