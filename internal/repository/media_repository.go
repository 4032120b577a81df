package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agrolink/agrolink-backend/internal/models"
)

var ErrMediaNotFound = errors.New("media file not found")

// MediaRepository хранит метаданные загруженных файлов и их привязку
// к контрактам.
type MediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create сохраняет метаданные файла.
func (r *MediaRepository) Create(ctx context.Context, m *models.MediaFile) (*models.MediaFile, error) {
	var saved models.MediaFile
	query := `
		INSERT INTO media_files (owner_id, file_name, file_path, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`
	err := r.db.GetContext(ctx, &saved, query, m.OwnerID, m.FileName, m.FilePath, m.MimeType, m.SizeBytes)
	if err != nil {
		return nil, fmt.Errorf("media repository: create %w", err)
	}
	return &saved, nil
}

// GetByID возвращает метаданные файла.
func (r *MediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error) {
	var media models.MediaFile
	err := r.db.GetContext(ctx, &media, `SELECT * FROM media_files WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("media repository: get by id %w", err)
	}
	return &media, nil
}

// AttachToContract привязывает файл к контракту.
func (r *MediaRepository) AttachToContract(ctx context.Context, contractID, mediaID uuid.UUID) (*models.ContractAttachment, error) {
	var attachment models.ContractAttachment
	query := `
		INSERT INTO contract_attachments (contract_id, media_id)
		VALUES ($1, $2)
		ON CONFLICT (contract_id, media_id) DO UPDATE SET media_id = EXCLUDED.media_id
		RETURNING *
	`
	err := r.db.GetContext(ctx, &attachment, query, contractID, mediaID)
	if err != nil {
		return nil, fmt.Errorf("media repository: attach to contract %w", err)
	}
	return &attachment, nil
}

// ListByContract возвращает вложения контракта вместе с метаданными файлов.
func (r *MediaRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractAttachment, error) {
	var attachments []models.ContractAttachment
	err := r.db.SelectContext(ctx, &attachments, `
		SELECT * FROM contract_attachments WHERE contract_id = $1 ORDER BY created_at
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("media repository: list by contract %w", err)
	}

	for i := range attachments {
		media, err := r.GetByID(ctx, attachments[i].MediaID)
		if err != nil {
			if errors.Is(err, ErrMediaNotFound) {
				continue
			}
			return nil, err
		}
		attachments[i].Media = media
	}
	return attachments, nil
}
