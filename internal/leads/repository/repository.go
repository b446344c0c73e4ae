package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, name, phone, email, source,
	rental_type, ad_id, campaign_id, utm_source, utm_medium, utm_campaign,
	score, status, timeline, budget, location, guest_count, preferred_date, special_requests,
	qualification_link, link_delivered_at, link_opened_at, qualification_started_at, qualification_completed_at,
	last_contacted_at, crm_id, crm_synced_at, crm_status, sms_count, email_count, created_at, updated_at`

// Repository is the Postgres-backed lead store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.Source,
		&lead.RentalType, &lead.AdID, &lead.CampaignID, &lead.UTMSource, &lead.UTMMedium, &lead.UTMCampaign,
		&lead.Score, &lead.Status, &lead.Timeline, &lead.Budget, &lead.Location, &lead.GuestCount, &lead.PreferredDate, &lead.SpecialRequests,
		&lead.QualificationLink, &lead.LinkDeliveredAt, &lead.LinkOpenedAt, &lead.QualificationStartedAt, &lead.QualificationCompletedAt,
		&lead.LastContactedAt, &lead.CRMID, &lead.CRMSyncedAt, &lead.CRMStatus, &lead.SMSCount, &lead.EmailCount,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams, created NewActivity) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := insertLead(ctx, tx, params, created)
	if err != nil {
		return Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// CreateUnlessRecent holds a transaction-scoped advisory lock on the phone
// across the lookup and the insert.
func (r *Repository) CreateUnlessRecent(ctx context.Context, params CreateLeadParams, created NewActivity, since time.Time) (Lead, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, params.Phone); err != nil {
		return Lead{}, false, fmt.Errorf("lock phone: %w", err)
	}

	existing, err := scanLead(tx.QueryRow(ctx, findRecentByPhoneSQL, params.Phone, since))
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Lead{}, false, fmt.Errorf("dedup lookup: %w", err)
	}

	lead, err := insertLead(ctx, tx, params, created)
	if err != nil {
		return Lead{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Lead{}, false, err
	}
	return lead, false, nil
}

func insertLead(ctx context.Context, tx pgx.Tx, params CreateLeadParams, created NewActivity) (Lead, error) {
	lead, err := scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (
			name, phone, email, source, rental_type, ad_id, campaign_id,
			utm_source, utm_medium, utm_campaign, score, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+leadColumns,
		params.Name, params.Phone, params.Email, params.Source, params.RentalType, params.AdID, params.CampaignID,
		params.UTMSource, params.UTMMedium, params.UTMCampaign, params.Score, params.Status,
	))
	if err != nil {
		return Lead{}, fmt.Errorf("insert lead: %w", err)
	}

	created.LeadID = lead.ID
	if err := insertActivity(ctx, tx, created); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

const findRecentByPhoneSQL = `SELECT ` + leadColumns + ` FROM leads
	WHERE phone = $1 AND created_at >= $2
	ORDER BY created_at DESC
	LIMIT 1`

func (r *Repository) FindRecentByPhone(ctx context.Context, phone string, since time.Time) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, findRecentByPhoneSQL, phone, since))
}

func (r *Repository) Mutate(ctx context.Context, id uuid.UUID, fn func(m *Mutation) error) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanLead(tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Lead{}, err
	}

	m := &Mutation{Lead: current}
	if err := fn(m); err != nil {
		return Lead{}, err
	}
	l := m.Lead

	if err := tx.QueryRow(ctx, `
		UPDATE leads SET
			name = $2, phone = $3, email = $4, rental_type = $5, score = $6, status = $7,
			timeline = $8, budget = $9, location = $10, guest_count = $11, preferred_date = $12, special_requests = $13,
			qualification_link = $14, link_delivered_at = $15, link_opened_at = $16,
			qualification_started_at = $17, qualification_completed_at = $18, last_contacted_at = $19,
			crm_id = $20, crm_synced_at = $21, crm_status = $22, sms_count = $23, email_count = $24,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`,
		l.ID, l.Name, l.Phone, l.Email, l.RentalType, l.Score, l.Status,
		l.Timeline, l.Budget, l.Location, l.GuestCount, l.PreferredDate, l.SpecialRequests,
		l.QualificationLink, l.LinkDeliveredAt, l.LinkOpenedAt,
		l.QualificationStartedAt, l.QualificationCompletedAt, l.LastContactedAt,
		l.CRMID, l.CRMSyncedAt, l.CRMStatus, l.SMSCount, l.EmailCount,
	).Scan(&l.UpdatedAt); err != nil {
		return Lead{}, fmt.Errorf("update lead: %w", err)
	}

	for _, entry := range m.scoreLogs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_score_logs (lead_id, previous_score, new_score, reason, rules_applied)
			VALUES ($1, $2, $3, $4, $5)
		`, l.ID, entry.PreviousScore, entry.NewScore, entry.Reason, entry.RulesApplied); err != nil {
			return Lead{}, fmt.Errorf("insert score log: %w", err)
		}
	}
	for _, activity := range m.activities {
		if err := insertActivity(ctx, tx, activity); err != nil {
			return Lead{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return l, nil
}

func encodeData(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}

func insertActivity(ctx context.Context, tx pgx.Tx, activity NewActivity) error {
	data, err := encodeData(activity.Data)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, type, channel, data)
		VALUES ($1, $2, $3, $4)
	`, activity.LeadID, activity.Type, nullableChannel(activity.Channel), data)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func nullableChannel(ch domain.Channel) *string {
	if ch == "" {
		return nil
	}
	s := string(ch)
	return &s
}

func (r *Repository) AddActivity(ctx context.Context, activity NewActivity) error {
	data, err := encodeData(activity.Data)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, type, channel, data)
		SELECT id, $2::text, $3::text, $4::jsonb FROM leads WHERE id = $1
	`, activity.LeadID, activity.Type, nullableChannel(activity.Channel), data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, type, channel, data, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		var (
			a       Activity
			channel *string
			data    []byte
		)
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Type, &channel, &data, &a.CreatedAt); err != nil {
			return nil, err
		}
		if channel != nil {
			a.Channel = domain.Channel(*channel)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &a.Data); err != nil {
				return nil, fmt.Errorf("decode activity data: %w", err)
			}
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (r *Repository) ListScoreLogs(ctx context.Context, leadID uuid.UUID, limit int) ([]ScoreLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, previous_score, new_score, reason, rules_applied, created_at
		FROM lead_score_logs
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]ScoreLog, 0)
	for rows.Next() {
		var entry ScoreLog
		if err := rows.Scan(&entry.ID, &entry.LeadID, &entry.PreviousScore, &entry.NewScore, &entry.Reason, &entry.RulesApplied, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (r *Repository) ReserveSMS(ctx context.Context, id uuid.UUID, max int) (bool, error) {
	return r.reserve(ctx, "sms_count", id, max)
}

func (r *Repository) ReleaseSMS(ctx context.Context, id uuid.UUID) error {
	return r.release(ctx, "sms_count", id)
}

func (r *Repository) ReserveEmail(ctx context.Context, id uuid.UUID, max int) (bool, error) {
	return r.reserve(ctx, "email_count", id, max)
}

func (r *Repository) ReleaseEmail(ctx context.Context, id uuid.UUID) error {
	return r.release(ctx, "email_count", id)
}

// reserve relies on the row lock taken by UPDATE, so concurrent callers
// cannot both pass the cap check.
func (r *Repository) reserve(ctx context.Context, column string, id uuid.UUID, max int) (bool, error) {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE leads SET %[1]s = %[1]s + 1, updated_at = now()
		WHERE id = $1 AND %[1]s < $2
	`, column), id, max)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *Repository) release(ctx context.Context, column string, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE leads SET %[1]s = GREATEST(%[1]s - 1, 0), updated_at = now()
		WHERE id = $1
	`, column), id)
	return err
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.PageSize, params.Offset())
	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []any, int) {
	var whereClauses []string
	args := []any{}
	argIdx := 1

	add := func(format string, value any) {
		whereClauses = append(whereClauses, fmt.Sprintf(format, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Status != nil {
		add("status = $%d", *params.Status)
	}
	if params.Source != nil {
		add("source = $%d", *params.Source)
	}
	if params.MinScore != nil {
		add("score >= $%d", *params.MinScore)
	}
	if params.MaxScore != nil {
		add("score <= $%d", *params.MaxScore)
	}
	if params.StartDate != nil {
		add("created_at >= $%d", *params.StartDate)
	}
	if params.EndDate != nil {
		add("created_at <= $%d", *params.EndDate)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(name ILIKE $%d OR phone LIKE $%d OR email ILIKE $%d)", argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		argIdx++
	}

	if len(whereClauses) == 0 {
		return "TRUE", args, argIdx
	}
	return strings.Join(whereClauses, " AND "), args, argIdx
}

// likeEscaper quotes LIKE wildcards so search text matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *Repository) Summary(ctx context.Context, todayStart, weekStart time.Time) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COUNT(*) FILTER (WHERE created_at >= $2),
			COUNT(*) FILTER (WHERE qualification_completed_at IS NOT NULL),
			COALESCE(AVG(score), 0)::float8
		FROM leads
	`, todayStart, weekStart).Scan(&s.Total, &s.Today, &s.ThisWeek, &s.Qualified, &s.AverageScore)
	return s, err
}

func (r *Repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, "status")
}

func (r *Repository) CountBySource(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, "source")
}

func (r *Repository) countBy(ctx context.Context, column string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %[1]s, COUNT(*) FROM leads GROUP BY %[1]s`, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}
