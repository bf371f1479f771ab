package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"blood-donation/internal/domain"
)

// DonationRequestRepository stores requests and their append-only status
// history. Mutations are conditional on the status and version the caller
// loaded; a stale caller gets domain.ErrPreconditionFailed.
type DonationRequestRepository interface {
	Create(ctx context.Context, req *domain.DonationRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DonationRequest, error)
	List(ctx context.Context, filter domain.ListRequestsFilter, params domain.PaginationParams) ([]domain.DonationRequest, int64, error)
	ApplyTransition(ctx context.Context, expected domain.RequestStatus, expectedVersion int, next *domain.DonationRequest, entry domain.StatusEntry) error
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int, allowed []domain.RequestStatus) error
	CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error)
}

type donationRequestRow struct {
	ID                 uuid.UUID  `db:"id"`
	RecipientName      string     `db:"recipient_name"`
	Hospital           string     `db:"hospital"`
	BloodGroup         string     `db:"blood_group"`
	RequiredDate       string     `db:"required_date"`
	RequiredTime       string     `db:"required_time"`
	Urgency            string     `db:"urgency"`
	AdditionalInfo     string     `db:"additional_info"`
	Division           string     `db:"division"`
	District           string     `db:"district"`
	Upazila            string     `db:"upazila"`
	FullAddress        string     `db:"full_address"`
	RequesterID        uuid.UUID  `db:"requester_id"`
	RequesterName      string     `db:"requester_name"`
	RequesterEmail     string     `db:"requester_email"`
	RequesterRole      string     `db:"requester_role"`
	RequesterCreatedAt time.Time  `db:"requester_created_at"`
	DonorID            *uuid.UUID `db:"donor_id"`
	DonorName          *string    `db:"donor_name"`
	DonorEmail         *string    `db:"donor_email"`
	DonorRole          *string    `db:"donor_role"`
	Status             string     `db:"status"`
	Version            int        `db:"version"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

type statusHistoryRow struct {
	RequestID     uuid.UUID `db:"request_id"`
	Status        string    `db:"status"`
	ChangedAt     time.Time `db:"changed_at"`
	ChangedByID   uuid.UUID `db:"changed_by_id"`
	ChangedByName string    `db:"changed_by_name"`
	Note          string    `db:"note"`
}

const requestColumns = `id, recipient_name, hospital, blood_group, required_date, required_time, urgency,
	additional_info, division, district, upazila, full_address, requester_id, requester_name,
	requester_email, requester_role, requester_created_at, donor_id, donor_name, donor_email,
	donor_role, status, version, created_at, updated_at`

func toRow(req *domain.DonationRequest) donationRequestRow {
	row := donationRequestRow{
		ID:                 req.ID,
		RecipientName:      req.Recipient.Name,
		Hospital:           req.Recipient.Hospital,
		BloodGroup:         string(req.DonationInfo.BloodGroup),
		RequiredDate:       req.DonationInfo.RequiredDate,
		RequiredTime:       req.DonationInfo.RequiredTime,
		Urgency:            string(req.DonationInfo.Urgency),
		AdditionalInfo:     req.DonationInfo.AdditionalInfo,
		Division:           req.Location.Division,
		District:           req.Location.District,
		Upazila:            req.Location.Upazila,
		FullAddress:        req.Location.FullAddress,
		RequesterID:        req.Requester.ID,
		RequesterName:      req.Requester.Name,
		RequesterEmail:     req.Requester.Email,
		RequesterRole:      string(req.Requester.Role),
		RequesterCreatedAt: req.Requester.CreatedAt,
		Status:             string(req.Status.Current),
		Version:            req.Version,
		CreatedAt:          req.CreatedAt,
		UpdatedAt:          req.UpdatedAt,
	}
	if req.Donor != nil {
		id, name, email, role := req.Donor.ID, req.Donor.Name, req.Donor.Email, string(req.Donor.Role)
		row.DonorID, row.DonorName, row.DonorEmail, row.DonorRole = &id, &name, &email, &role
	}
	return row
}

func (row donationRequestRow) toDomain(history []domain.StatusEntry) domain.DonationRequest {
	req := domain.DonationRequest{
		ID:        row.ID,
		Recipient: domain.Recipient{Name: row.RecipientName, Hospital: row.Hospital},
		DonationInfo: domain.DonationInfo{
			BloodGroup:     domain.BloodGroup(row.BloodGroup),
			RequiredDate:   row.RequiredDate,
			RequiredTime:   row.RequiredTime,
			Urgency:        domain.Urgency(row.Urgency),
			AdditionalInfo: row.AdditionalInfo,
		},
		Location: domain.RequestLocation{
			Division:    row.Division,
			District:    row.District,
			Upazila:     row.Upazila,
			FullAddress: row.FullAddress,
		},
		Requester: domain.Requester{
			ID:        row.RequesterID,
			Name:      row.RequesterName,
			Email:     row.RequesterEmail,
			Role:      domain.Role(row.RequesterRole),
			CreatedAt: row.RequesterCreatedAt,
		},
		Status:    domain.RequestState{Current: domain.RequestStatus(row.Status), History: history},
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if req.Status.History == nil {
		req.Status.History = []domain.StatusEntry{}
	}
	if row.DonorID != nil {
		req.Donor = &domain.Donor{ID: *row.DonorID, Name: deref(row.DonorName), Email: deref(row.DonorEmail), Role: domain.Role(deref(row.DonorRole))}
	}
	return req
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type donationRequestRepository struct {
	db *sqlx.DB
}

func NewDonationRequestRepository(db *sqlx.DB) DonationRequestRepository {
	return &donationRequestRepository{db: db}
}

func (r *donationRequestRepository) Create(ctx context.Context, req *domain.DonationRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	req.Version = 1
	query := `
		INSERT INTO donation_requests (` + requestColumns + `)
		VALUES (:id, :recipient_name, :hospital, :blood_group, :required_date, :required_time, :urgency,
			:additional_info, :division, :district, :upazila, :full_address, :requester_id, :requester_name,
			:requester_email, :requester_role, :requester_created_at, :donor_id, :donor_name, :donor_email,
			:donor_role, :status, :version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, toRow(req)); err != nil {
		return fmt.Errorf("insert donation request: %w", err)
	}

	for _, entry := range req.Status.History {
		if err := insertHistory(ctx, tx, req.ID, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *donationRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DonationRequest, error) {
	var row donationRequestRow
	query := `SELECT ` + requestColumns + ` FROM donation_requests WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	histories, err := r.histories(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}

	req := row.toDomain(histories[id])
	return &req, nil
}

func (r *donationRequestRepository) List(ctx context.Context, filter domain.ListRequestsFilter, params domain.PaginationParams) ([]domain.DonationRequest, int64, error) {
	params.Validate()

	var conditions []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Status != nil {
		add("status", string(*filter.Status))
	}
	if filter.BloodGroup != nil {
		add("blood_group", string(*filter.BloodGroup))
	}
	if filter.RequesterID != nil {
		add("requester_id", *filter.RequesterID)
	}
	if filter.DonorID != nil {
		add("donor_id", *filter.DonorID)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM donation_requests`+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM donation_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		requestColumns, where, len(args)+1, len(args)+2)

	var rows []donationRequestRow
	if err := r.db.SelectContext(ctx, &rows, query, append(args, params.Limit, params.Offset())...); err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	histories, err := r.histories(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	requests := make([]domain.DonationRequest, len(rows))
	for i, row := range rows {
		requests[i] = row.toDomain(histories[row.ID])
	}
	return requests, total, nil
}

func (r *donationRequestRepository) ApplyTransition(ctx context.Context, expected domain.RequestStatus, expectedVersion int, next *domain.DonationRequest, entry domain.StatusEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := toRow(next)
	query := `
		UPDATE donation_requests
		SET recipient_name = $1, hospital = $2, required_date = $3, required_time = $4,
			additional_info = $5, full_address = $6, donor_id = $7, donor_name = $8,
			donor_email = $9, donor_role = $10, status = $11, version = version + 1, updated_at = $12
		WHERE id = $13 AND status = $14 AND version = $15`

	res, err := tx.ExecContext(ctx, query,
		row.RecipientName, row.Hospital, row.RequiredDate, row.RequiredTime,
		row.AdditionalInfo, row.FullAddress, row.DonorID, row.DonorName,
		row.DonorEmail, row.DonorRole, row.Status, row.UpdatedAt,
		row.ID, string(expected), expectedVersion,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrPreconditionFailed
	}

	if err := insertHistory(ctx, tx, next.ID, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	next.Version = expectedVersion + 1
	return nil
}

func (r *donationRequestRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int, allowed []domain.RequestStatus) error {
	statuses := make([]string, len(allowed))
	for i, s := range allowed {
		statuses[i] = string(s)
	}

	query := `DELETE FROM donation_requests WHERE id = $1 AND version = $2 AND status = ANY($3)`
	res, err := r.db.ExecContext(ctx, query, id, expectedVersion, pq.Array(statuses))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrPreconditionFailed
	}
	return nil
}

func (r *donationRequestRepository) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM donation_requests GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	counts := map[domain.RequestStatus]int64{
		domain.StatusPending:    0,
		domain.StatusInProgress: 0,
		domain.StatusCompleted:  0,
		domain.StatusCancelled:  0,
	}
	for _, row := range rows {
		counts[domain.RequestStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func (r *donationRequestRepository) histories(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.StatusEntry, error) {
	out := make(map[uuid.UUID][]domain.StatusEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	var rows []statusHistoryRow
	query := `
		SELECT request_id, status, changed_at, changed_by_id, changed_by_name, note
		FROM request_status_history
		WHERE request_id = ANY($1::uuid[])
		ORDER BY seq ASC`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(keys)); err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.RequestID] = append(out[row.RequestID], domain.StatusEntry{
			Status:    domain.RequestStatus(row.Status),
			ChangedAt: row.ChangedAt,
			ChangedBy: domain.ChangedBy{ID: row.ChangedByID, Name: row.ChangedByName},
			Note:      row.Note,
		})
	}
	return out, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, requestID uuid.UUID, entry domain.StatusEntry) error {
	query := `
		INSERT INTO request_status_history (request_id, status, changed_at, changed_by_id, changed_by_name, note)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.ExecContext(ctx, query,
		requestID, string(entry.Status), entry.ChangedAt, entry.ChangedBy.ID, entry.ChangedBy.Name, entry.Note,
	)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}
