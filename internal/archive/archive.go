// Package archive keeps a Postgres copy of finished records. It is enabled
// only when DATABASE_URL is configured; the spreadsheet stays the primary
// output.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS product_records (
	asin              TEXT PRIMARY KEY,
	title             TEXT,
	brand             TEXT,
	mrp               TEXT,
	selling_price     TEXT,
	deal_name         TEXT,
	bullet_points     JSONB,
	description       TEXT,
	technical_details JSONB,
	variation_data    JSONB,
	box_contents      TEXT,
	rating            DOUBLE PRECISION,
	review_count      INTEGER,
	question_count    INTEGER,
	best_seller_rank  TEXT,
	seller_name       TEXT,
	image_urls        JSONB,
	image_count       INTEGER NOT NULL DEFAULT 0,
	has_ebc_content   BOOLEAN NOT NULL DEFAULT FALSE,
	has_video         BOOLEAN NOT NULL DEFAULT FALSE,
	status            TEXT NOT NULL,
	error_message     TEXT,
	scraped_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

type Archive struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Archive, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Archive{pool: pool}, nil
}

func (a *Archive) Close() {
	a.pool.Close()
}

func (a *Archive) Name() string { return "archive" }

// Consume upserts one finished record keyed on ASIN.
func (a *Archive) Consume(ctx context.Context, record *models.ProductRecord) error {
	return a.SaveRecord(ctx, record)
}

func (a *Archive) SaveRecord(ctx context.Context, record *models.ProductRecord) error {
	bullets, err := json.Marshal(record.BulletPoints)
	if err != nil {
		return fmt.Errorf("failed to marshal bullet points: %w", err)
	}
	details, err := json.Marshal(record.TechnicalDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal technical details: %w", err)
	}
	variations, err := json.Marshal(record.VariationData)
	if err != nil {
		return fmt.Errorf("failed to marshal variation data: %w", err)
	}
	imageURLs, err := json.Marshal(record.ImageURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal image urls: %w", err)
	}

	query := `
		INSERT INTO product_records (
			asin, title, brand, mrp, selling_price, deal_name,
			bullet_points, description, technical_details, variation_data, box_contents,
			rating, review_count, question_count, best_seller_rank, seller_name,
			image_urls, image_count, has_ebc_content, has_video,
			status, error_message, scraped_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		)
		ON CONFLICT (asin) DO UPDATE SET
			title = EXCLUDED.title,
			brand = EXCLUDED.brand,
			mrp = EXCLUDED.mrp,
			selling_price = EXCLUDED.selling_price,
			deal_name = EXCLUDED.deal_name,
			bullet_points = EXCLUDED.bullet_points,
			description = EXCLUDED.description,
			technical_details = EXCLUDED.technical_details,
			variation_data = EXCLUDED.variation_data,
			box_contents = EXCLUDED.box_contents,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			question_count = EXCLUDED.question_count,
			best_seller_rank = EXCLUDED.best_seller_rank,
			seller_name = EXCLUDED.seller_name,
			image_urls = EXCLUDED.image_urls,
			image_count = EXCLUDED.image_count,
			has_ebc_content = EXCLUDED.has_ebc_content,
			has_video = EXCLUDED.has_video,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			scraped_at = EXCLUDED.scraped_at,
			updated_at = CURRENT_TIMESTAMP`

	_, err = a.pool.Exec(ctx, query,
		record.ASIN, record.Title, record.Brand, record.MRP, record.SellingPrice, record.DealName,
		bullets, record.Description, details, variations, record.BoxContents,
		record.Rating, record.ReviewCount, record.QuestionCount, record.BestSellerRank, record.SellerName,
		imageURLs, record.ImageCount, record.HasEBCContent, record.HasVideo,
		record.Status, record.ErrorMessage, record.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// RecentRecords returns the most recently updated archive rows as JSON-ready
// summaries, newest first.
func (a *Archive) RecentRecords(ctx context.Context, limit int) ([]*models.ProductRecord, error) {
	if limit < 1 {
		limit = 20
	}

	query := `
		SELECT asin, title, brand, image_urls, image_count, status, error_message, scraped_at
		FROM product_records
		ORDER BY updated_at DESC
		LIMIT $1`

	rows, err := a.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*models.ProductRecord
	for rows.Next() {
		var (
			record    models.ProductRecord
			imageURLs []byte
		)
		if err := rows.Scan(
			&record.ASIN, &record.Title, &record.Brand, &imageURLs,
			&record.ImageCount, &record.Status, &record.ErrorMessage, &record.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if len(imageURLs) > 0 {
			if err := json.Unmarshal(imageURLs, &record.ImageURLs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal image urls: %w", err)
			}
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}
