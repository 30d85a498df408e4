package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagen/tvlineup/internal/codec"
	"github.com/voyagen/tvlineup/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool // nil for a transaction-scoped store
	db   querier
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool, db: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// WithTx runs fn inside a single database transaction. Nested calls reuse the
// outer transaction.
func (p *Postgres) WithTx(ctx context.Context, fn func(Store) error) error {
	if p.pool == nil {
		return fn(p)
	}
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(&Postgres{db: tx})
	})
}

// ChannelKeys returns the matching keys of every channel of inputID.
func (p *Postgres) ChannelKeys(ctx context.Context, inputID string) ([]models.ChannelKey, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, original_network_id, display_number FROM channels WHERE input_id = $1 ORDER BY id`,
		inputID,
	)
	if err != nil {
		return nil, fmt.Errorf("ChannelKeys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ChannelKey, error) {
		var k models.ChannelKey
		err := row.Scan(&k.RowID, &k.OriginalNetworkID, &k.DisplayNumber)
		return k, err
	})
	if err != nil {
		return nil, fmt.Errorf("ChannelKeys: %w", err)
	}
	return keys, nil
}

// InsertChannel inserts a channel; returns the new row id.
func (p *Postgres) InsertChannel(ctx context.Context, ch *models.Channel) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx,
		`INSERT INTO channels (input_id, original_network_id, transport_stream_id, service_id,
		   display_number, display_name, description, package_name, type, service_type,
		   video_format, internal_provider_data, logo_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		ch.InputID, ch.OriginalNetworkID, ch.TransportStreamID, ch.ServiceID,
		ch.DisplayNumber, ch.DisplayName, ch.Description, ch.PackageName, ch.Type, ch.ServiceType,
		ch.VideoFormat, ch.InternalProviderData, ch.Logo,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("InsertChannel: %w", err)
	}
	return id, nil
}

// UpdateChannel overwrites the channel at rowID.
func (p *Postgres) UpdateChannel(ctx context.Context, rowID int64, ch *models.Channel) (int64, error) {
	tag, err := p.db.Exec(ctx,
		`UPDATE channels SET input_id = $2, original_network_id = $3, transport_stream_id = $4,
		   service_id = $5, display_number = $6, display_name = $7, description = $8,
		   package_name = $9, type = $10, service_type = $11, video_format = $12,
		   internal_provider_data = $13, logo_url = $14, updated_at = NOW()
		 WHERE id = $1`,
		rowID, ch.InputID, ch.OriginalNetworkID, ch.TransportStreamID,
		ch.ServiceID, ch.DisplayNumber, ch.DisplayName, ch.Description,
		ch.PackageName, ch.Type, ch.ServiceType, ch.VideoFormat,
		ch.InternalProviderData, ch.Logo,
	)
	if err != nil {
		return 0, fmt.Errorf("UpdateChannel: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteChannel deletes the channel at rowID. Programs and logo cascade.
func (p *Postgres) DeleteChannel(ctx context.Context, rowID int64) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM channels WHERE id = $1`, rowID)
	if err != nil {
		return 0, fmt.Errorf("DeleteChannel: %w", err)
	}
	return tag.RowsAffected(), nil
}

const channelColumns = `id, input_id, original_network_id, transport_stream_id, service_id,
	display_number, display_name, description, package_name, type, service_type,
	video_format, internal_provider_data, logo_url`

func scanChannel(row pgx.Row) (models.Channel, error) {
	var ch models.Channel
	err := row.Scan(&ch.ID, &ch.InputID, &ch.OriginalNetworkID, &ch.TransportStreamID, &ch.ServiceID,
		&ch.DisplayNumber, &ch.DisplayName, &ch.Description, &ch.PackageName, &ch.Type, &ch.ServiceType,
		&ch.VideoFormat, &ch.InternalProviderData, &ch.Logo)
	return ch, err
}

// ListChannels returns all channels ordered by id.
func (p *Postgres) ListChannels(ctx context.Context) ([]models.Channel, error) {
	rows, err := p.db.Query(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	channels, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Channel, error) {
		return scanChannel(row)
	})
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	return channels, nil
}

// GetChannel returns a single channel by id.
func (p *Postgres) GetChannel(ctx context.Context, rowID int64) (*models.Channel, error) {
	ch, err := scanChannel(p.db.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, rowID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetChannel: %w", err)
	}
	return &ch, nil
}

// ListPrograms returns the programs of a channel ordered by start time.
func (p *Postgres) ListPrograms(ctx context.Context, channelID int64) ([]models.Program, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, channel_id, title, description, start_time, end_time,
		   COALESCE(content_ratings, ''), internal_provider_data, poster_art_url
		 FROM programs WHERE channel_id = $1 ORDER BY start_time, id`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPrograms: %w", err)
	}
	programs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Program, error) {
		var pr models.Program
		var ratings string
		if err := row.Scan(&pr.ID, &pr.ChannelID, &pr.Title, &pr.Description, &pr.StartTime, &pr.EndTime,
			&ratings, &pr.InternalProviderData, &pr.PosterArtURL); err != nil {
			return pr, err
		}
		rs, err := codec.DecodeRatings(ratings)
		if err != nil {
			return pr, err
		}
		pr.ContentRatings = rs
		return pr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListPrograms: %w", err)
	}
	return programs, nil
}

// ReplacePrograms deletes the schedule of a channel and inserts programs in one batch.
func (p *Postgres) ReplacePrograms(ctx context.Context, channelID int64, programs []models.Program) error {
	return p.WithTx(ctx, func(s Store) error {
		tx := s.(*Postgres)
		if _, err := tx.db.Exec(ctx, `DELETE FROM programs WHERE channel_id = $1`, channelID); err != nil {
			return fmt.Errorf("ReplacePrograms: %w", err)
		}
		b := &pgx.Batch{}
		for _, pr := range programs {
			b.Queue(
				`INSERT INTO programs (channel_id, title, description, start_time, end_time,
				   content_ratings, internal_provider_data, poster_art_url)
				 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
				channelID, pr.Title, pr.Description, pr.StartTime.UTC(), pr.EndTime.UTC(),
				codec.EncodeRatings(pr.ContentRatings), pr.InternalProviderData, pr.PosterArtURL,
			)
		}
		if b.Len() == 0 {
			return nil
		}
		if err := tx.sendBatch(ctx, b); err != nil {
			return fmt.Errorf("ReplacePrograms: %w", err)
		}
		return nil
	})
}

func (p *Postgres) sendBatch(ctx context.Context, b *pgx.Batch) error {
	br := p.db.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

// PutChannelLogo upserts the logo blob of a channel.
func (p *Postgres) PutChannelLogo(ctx context.Context, channelID int64, content []byte, contentType string) error {
	if content == nil {
		content = []byte{}
	}
	_, err := p.db.Exec(ctx,
		`INSERT INTO channel_logos (channel_id, content, content_type, size, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (channel_id) DO UPDATE SET
		   content = EXCLUDED.content, content_type = EXCLUDED.content_type,
		   size = EXCLUDED.size, updated_at = EXCLUDED.updated_at`,
		channelID, content, contentType, len(content),
	)
	if err != nil {
		return fmt.Errorf("PutChannelLogo: %w", err)
	}
	return nil
}

// GetChannelLogo returns the logo blob and its content type.
func (p *Postgres) GetChannelLogo(ctx context.Context, channelID int64) ([]byte, string, error) {
	var content []byte
	var contentType string
	err := p.db.QueryRow(ctx,
		`SELECT content, content_type FROM channel_logos WHERE channel_id = $1`, channelID,
	).Scan(&content, &contentType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("GetChannelLogo: %w", err)
	}
	return content, contentType, nil
}
