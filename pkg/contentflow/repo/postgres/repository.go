package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-flow/pkg/contentflow"
)

// DBTX is an interface that allows us to use either a connection pool or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements contentflow.Repository using PostgreSQL
type Repository struct {
	db   DBTX
	inTx bool
}

// New creates a new PostgreSQL repository
func New(db DBTX) contentflow.Repository {
	_, inTx := db.(pgx.Tx)
	return &Repository{db: db, inTx: inTx}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) contentflow.Repository {
	return &Repository{db: pool}
}

// WithTx runs fn in a read committed transaction. Inside a transaction,
// content and metrics rows are read with FOR UPDATE so concurrent writers to
// the same content are serialized.
func (r *Repository) WithTx(ctx context.Context, fn func(tx contentflow.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	run := func(tx pgx.Tx) error {
		return fn(&Repository{db: tx, inTx: true})
	}
	if b, ok := r.db.(interface {
		BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
	}); ok {
		return pgx.BeginTxFunc(ctx, b, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, run)
	}
	return pgx.BeginFunc(ctx, r.db, run)
}

func (r *Repository) lockClause() string {
	if r.inTx {
		return " FOR UPDATE"
	}
	return ""
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "source_draft") {
				return fmt.Errorf("%w: draft already promoted", contentflow.ErrValidation)
			}
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s: %s", operation, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Content operations

const contentColumns = `id, tenant_id, creator_id, producer_id, product_id, source_draft_id,
	name, type, body, status, created_at, updated_at,
	production_started_at, production_ended_at, posted_at`

func scanContent(row pgx.Row) (*contentflow.Content, error) {
	var c contentflow.Content
	err := row.Scan(
		&c.ID, &c.TenantID, &c.CreatorID, &c.ProducerID, &c.ProductID, &c.SourceDraftID,
		&c.Name, &c.Type, &c.Body, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		&c.ProductionStartedAt, &c.ProductionEndedAt, &c.PostedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetContent(ctx context.Context, id, tenantID uuid.UUID) (*contentflow.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE id = $1 AND tenant_id = $2` + r.lockClause()

	content, err := scanContent(r.db.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentflow.ErrContentNotFound
		}
		return nil, r.handlePostgresError("get content", err)
	}

	channels, err := r.contentChannels(ctx, content.ID)
	if err != nil {
		return nil, err
	}
	content.ChannelIDs = channels
	return content, nil
}

func (r *Repository) contentChannels(ctx context.Context, contentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT channel_id FROM content_channel WHERE content_id = $1 ORDER BY position`, contentID)
	if err != nil {
		return nil, r.handlePostgresError("get content channels", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveContent upserts the content row and replaces its channel set. The
// tenant, creator and creation time of an existing row are never changed.
func (r *Repository) SaveContent(ctx context.Context, content *contentflow.Content) error {
	return r.WithTx(ctx, func(txRepo contentflow.Repository) error {
		tx := txRepo.(*Repository)
		tag, err := tx.db.Exec(ctx, `
			INSERT INTO content (`+contentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO UPDATE SET
				producer_id = EXCLUDED.producer_id,
				product_id = EXCLUDED.product_id,
				name = EXCLUDED.name,
				type = EXCLUDED.type,
				body = EXCLUDED.body,
				status = EXCLUDED.status,
				updated_at = EXCLUDED.updated_at,
				production_started_at = EXCLUDED.production_started_at,
				production_ended_at = EXCLUDED.production_ended_at,
				posted_at = EXCLUDED.posted_at
			WHERE content.tenant_id = EXCLUDED.tenant_id`,
			content.ID, content.TenantID, content.CreatorID, content.ProducerID, content.ProductID,
			content.SourceDraftID, content.Name, content.Type, content.Body, content.Status,
			content.CreatedAt, content.UpdatedAt, content.ProductionStartedAt,
			content.ProductionEndedAt, content.PostedAt)
		if err != nil {
			return tx.handlePostgresError("save content", err)
		}
		if tag.RowsAffected() == 0 {
			return contentflow.ErrContentNotFound
		}

		if _, err := tx.db.Exec(ctx, `DELETE FROM content_channel WHERE content_id = $1`, content.ID); err != nil {
			return tx.handlePostgresError("save content channels", err)
		}
		for i, channelID := range content.ChannelIDs {
			if _, err := tx.db.Exec(ctx,
				`INSERT INTO content_channel (content_id, channel_id, position) VALUES ($1, $2, $3)
				 ON CONFLICT (content_id, channel_id) DO NOTHING`,
				content.ID, channelID, i); err != nil {
				return tx.handlePostgresError("save content channels", err)
			}
		}
		return nil
	})
}

// DeleteContent removes the row; metrics and channel links cascade.
func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return contentflow.ErrContentNotFound
	}
	return nil
}

func (r *Repository) ListContent(ctx context.Context, tenantID uuid.UUID) ([]*contentflow.Content, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+contentColumns+` FROM content WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, r.handlePostgresError("list content", err)
	}
	var contents []*contentflow.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		contents = append(contents, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range contents {
		if c.ChannelIDs, err = r.contentChannels(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	return contents, nil
}

// Draft operations

func (r *Repository) GetDraft(ctx context.Context, id, tenantID uuid.UUID) (*contentflow.Draft, error) {
	query := `
		SELECT id, tenant_id, creator_id, product_id, title, type, body,
		       approval_status, created_at, updated_at
		FROM draft WHERE id = $1 AND tenant_id = $2` + r.lockClause()

	var d contentflow.Draft
	err := r.db.QueryRow(ctx, query, id, tenantID).Scan(
		&d.ID, &d.TenantID, &d.CreatorID, &d.ProductID, &d.Title, &d.Type, &d.Body,
		&d.ApprovalStatus, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentflow.ErrDraftNotFound
		}
		return nil, r.handlePostgresError("get draft", err)
	}
	return &d, nil
}

func (r *Repository) SaveDraft(ctx context.Context, d *contentflow.Draft) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO draft (id, tenant_id, creator_id, product_id, title, type, body,
		                   approval_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			title = EXCLUDED.title,
			type = EXCLUDED.type,
			body = EXCLUDED.body,
			approval_status = EXCLUDED.approval_status,
			updated_at = EXCLUDED.updated_at`,
		d.ID, d.TenantID, d.CreatorID, d.ProductID, d.Title, d.Type, d.Body,
		d.ApprovalStatus, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("save draft", err)
	}
	return nil
}

func (r *Repository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM draft WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete draft", err)
	}
	if tag.RowsAffected() == 0 {
		return contentflow.ErrDraftNotFound
	}
	return nil
}

// Channel operations

func (r *Repository) GetChannel(ctx context.Context, id uuid.UUID) (*contentflow.Channel, error) {
	var c contentflow.Channel
	err := r.db.QueryRow(ctx, `SELECT id, tenant_id, name FROM channel WHERE id = $1`, id).
		Scan(&c.ID, &c.TenantID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentflow.ErrChannelNotFound
		}
		return nil, r.handlePostgresError("get channel", err)
	}
	return &c, nil
}

func (r *Repository) FindChannelsByIDs(ctx context.Context, ids []uuid.UUID) ([]*contentflow.Channel, error) {
	result := []*contentflow.Channel{}
	if len(ids) == 0 {
		return result, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, name FROM channel WHERE id = ANY($1::uuid[])`, keys)
	if err != nil {
		return nil, r.handlePostgresError("find channels", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c contentflow.Channel
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

func (r *Repository) SaveChannel(ctx context.Context, c *contentflow.Channel) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO channel (id, tenant_id, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		c.ID, c.TenantID, c.Name)
	if err != nil {
		return r.handlePostgresError("save channel", err)
	}
	return nil
}

// User and product operations

func (r *Repository) GetUser(ctx context.Context, id, tenantID uuid.UUID) (*contentflow.User, error) {
	var u contentflow.User
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, name, role FROM app_user WHERE id = $1 AND tenant_id = $2`, id, tenantID).
		Scan(&u.ID, &u.TenantID, &u.Name, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentflow.ErrUserNotFound
		}
		return nil, r.handlePostgresError("get user", err)
	}
	return &u, nil
}

func (r *Repository) SaveUser(ctx context.Context, u *contentflow.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO app_user (id, tenant_id, name, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role`,
		u.ID, u.TenantID, u.Name, string(u.Role))
	if err != nil {
		return r.handlePostgresError("save user", err)
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id, tenantID uuid.UUID) (*contentflow.Product, error) {
	var p contentflow.Product
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, name FROM product WHERE id = $1 AND tenant_id = $2`, id, tenantID).
		Scan(&p.ID, &p.TenantID, &p.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentflow.ErrProductNotFound
		}
		return nil, r.handlePostgresError("get product", err)
	}
	return &p, nil
}

func (r *Repository) SaveProduct(ctx context.Context, p *contentflow.Product) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO product (id, tenant_id, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		p.ID, p.TenantID, p.Name)
	if err != nil {
		return r.handlePostgresError("save product", err)
	}
	return nil
}

// Metrics operations

const metricsColumns = `cm.id, cm.content_id, cm.tenant_id, cm.views, cm.likes, cm.comments, cm.shares,
	cm.reach, cm.impressions, cm.engagement_rate, cm.click_through_rate, cm.conversion_rate,
	cm.created_at, cm.updated_at`

func metricsDest(m *contentflow.ContentMetrics) []interface{} {
	return []interface{}{
		&m.ID, &m.ContentID, &m.TenantID, &m.Views, &m.Likes, &m.Comments, &m.Shares,
		&m.Reach, &m.Impressions, &m.EngagementRate, &m.ClickThroughRate, &m.ConversionRate,
		&m.CreatedAt, &m.UpdatedAt,
	}
}

func (r *Repository) GetContentMetrics(ctx context.Context, contentID uuid.UUID) (*contentflow.ContentMetrics, error) {
	query := `SELECT ` + metricsColumns + ` FROM content_metrics cm WHERE cm.content_id = $1` + r.lockClause()

	m := &contentflow.ContentMetrics{}
	if err := r.db.QueryRow(ctx, query, contentID).Scan(metricsDest(m)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentflow.ErrMetricsNotFound
		}
		return nil, r.handlePostgresError("get content metrics", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, channel_id, channel_name, likes, comments, shares,
		       site_visits, new_accounts, post_clicks, updated_at
		FROM channel_metric WHERE content_metrics_id = $1 ORDER BY position`, m.ID)
	if err != nil {
		return nil, r.handlePostgresError("get channel metrics", err)
	}
	defer rows.Close()

	m.Channels = []*contentflow.ChannelMetric{}
	for rows.Next() {
		c := &contentflow.ChannelMetric{}
		if err := rows.Scan(&c.ID, &c.ChannelID, &c.ChannelName, &c.Likes, &c.Comments, &c.Shares,
			&c.SiteVisits, &c.NewAccounts, &c.PostClicks, &c.UpdatedAt); err != nil {
			return nil, err
		}
		m.Channels = append(m.Channels, c)
	}
	return m, rows.Err()
}

// SaveContentMetrics upserts the aggregate row and every child row. There is
// at most one aggregate per content; a concurrent first write keeps the row
// that landed first and metrics.ID is updated to match it.
func (r *Repository) SaveContentMetrics(ctx context.Context, metrics *contentflow.ContentMetrics) error {
	return r.WithTx(ctx, func(txRepo contentflow.Repository) error {
		tx := txRepo.(*Repository)
		var id uuid.UUID
		err := tx.db.QueryRow(ctx, `
			INSERT INTO content_metrics (id, content_id, tenant_id, views, likes, comments, shares,
				reach, impressions, engagement_rate, click_through_rate, conversion_rate,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (content_id) DO UPDATE SET
				views = EXCLUDED.views,
				likes = EXCLUDED.likes,
				comments = EXCLUDED.comments,
				shares = EXCLUDED.shares,
				reach = EXCLUDED.reach,
				impressions = EXCLUDED.impressions,
				engagement_rate = EXCLUDED.engagement_rate,
				click_through_rate = EXCLUDED.click_through_rate,
				conversion_rate = EXCLUDED.conversion_rate,
				updated_at = EXCLUDED.updated_at
			RETURNING id`,
			metrics.ID, metrics.ContentID, metrics.TenantID, metrics.Views, metrics.Likes,
			metrics.Comments, metrics.Shares, metrics.Reach, metrics.Impressions,
			metrics.EngagementRate, metrics.ClickThroughRate, metrics.ConversionRate,
			metrics.CreatedAt, metrics.UpdatedAt).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return contentflow.ErrContentNotFound
			}
			return tx.handlePostgresError("save content metrics", err)
		}
		metrics.ID = id

		for i, c := range metrics.Channels {
			_, err := tx.db.Exec(ctx, `
				INSERT INTO channel_metric (id, content_metrics_id, channel_id, channel_name,
					likes, comments, shares, site_visits, new_accounts, post_clicks, position, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				ON CONFLICT (content_metrics_id, channel_id) DO UPDATE SET
					channel_name = EXCLUDED.channel_name,
					likes = EXCLUDED.likes,
					comments = EXCLUDED.comments,
					shares = EXCLUDED.shares,
					site_visits = EXCLUDED.site_visits,
					new_accounts = EXCLUDED.new_accounts,
					post_clicks = EXCLUDED.post_clicks,
					updated_at = EXCLUDED.updated_at`,
				c.ID, id, c.ChannelID, c.ChannelName, c.Likes, c.Comments, c.Shares,
				c.SiteVisits, c.NewAccounts, c.PostClicks, i, c.UpdatedAt)
			if err != nil {
				return tx.handlePostgresError("save channel metric", err)
			}
		}
		return nil
	})
}

func (r *Repository) ListContentMetrics(ctx context.Context, tenantID uuid.UUID) ([]*contentflow.ContentMetrics, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+metricsColumns+`,
		       ch.id, ch.channel_id, ch.channel_name, ch.likes, ch.comments, ch.shares,
		       ch.site_visits, ch.new_accounts, ch.post_clicks, ch.updated_at
		FROM content_metrics cm
		LEFT JOIN channel_metric ch ON ch.content_metrics_id = cm.id
		WHERE cm.tenant_id = $1
		ORDER BY cm.created_at, cm.id, ch.position`, tenantID)
	if err != nil {
		return nil, r.handlePostgresError("list content metrics", err)
	}
	defer rows.Close()

	var (
		result []*contentflow.ContentMetrics
		last   *contentflow.ContentMetrics
	)
	for rows.Next() {
		m := &contentflow.ContentMetrics{}
		var (
			childID, channelID                                       *uuid.UUID
			channelName                                              *string
			likes, comments, shares, siteVisits, newAccounts, clicks *int64
			updatedAt                                                *time.Time
		)
		dest := append(metricsDest(m), &childID, &channelID, &channelName, &likes, &comments, &shares,
			&siteVisits, &newAccounts, &clicks, &updatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if last == nil || last.ID != m.ID {
			m.Channels = []*contentflow.ChannelMetric{}
			result = append(result, m)
			last = m
		}
		if childID == nil {
			continue
		}
		last.Channels = append(last.Channels, &contentflow.ChannelMetric{
			ID:          *childID,
			ChannelID:   *channelID,
			ChannelName: *channelName,
			ChannelCounters: contentflow.ChannelCounters{
				Likes:       *likes,
				Comments:    *comments,
				Shares:      *shares,
				SiteVisits:  *siteVisits,
				NewAccounts: *newAccounts,
				PostClicks:  *clicks,
			},
			UpdatedAt: *updatedAt,
		})
	}
	return result, rows.Err()
}
