package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/pkg/apperror"
	"github.com/agrolink/agrolink-backend/internal/repository"
)

// MediaStore — операции репозитория файлов.
type MediaStore interface {
	Create(ctx context.Context, m *models.MediaFile) (*models.MediaFile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error)
	AttachToContract(ctx context.Context, contractID, mediaID uuid.UUID) (*models.ContractAttachment, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractAttachment, error)
}

// FileStorage сохраняет содержимое файла и возвращает путь до него.
type FileStorage interface {
	Save(fileName string, data []byte) (string, error)
	Remove(path string) error
}

// MediaService — загрузка файлов и вложения контрактов: сертификаты
// качества, фото урожая, накладные.
type MediaService struct {
	media     MediaStore
	contracts ContractStore
	storage   FileStorage
	maxSize   int64
}

func NewMediaService(media MediaStore, contracts ContractStore, storage FileStorage, maxSizeMB int64) *MediaService {
	return &MediaService{media: media, contracts: contracts, storage: storage, maxSize: maxSizeMB * 1024 * 1024}
}

// Upload проверяет тип по содержимому и сохраняет файл. Разрешены
// изображения и PDF.
func (s *MediaService) Upload(ctx context.Context, ownerID uuid.UUID, fileName string, data []byte) (*models.MediaFile, error) {
	if len(data) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "файл пуст")
	}
	if int64(len(data)) > s.maxSize {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("файл больше %d МБ", s.maxSize/(1024*1024)))
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, apperror.New(apperror.ErrCodeValidation, "не удалось определить тип файла")
	}
	if !filetype.IsImage(data) && kind != matchers.TypePdf {
		return nil, apperror.New(apperror.ErrCodeValidation, "допустимы только изображения и PDF")
	}

	path, err := s.storage.Save(fileName, data)
	if err != nil {
		return nil, fmt.Errorf("media service: сохранение файла %w", err)
	}

	saved, err := s.media.Create(ctx, &models.MediaFile{
		OwnerID:   ownerID,
		FileName:  fileName,
		FilePath:  path,
		MimeType:  kind.MIME.Value,
		SizeBytes: int64(len(data)),
	})
	if err != nil {
		if removeErr := s.storage.Remove(path); removeErr != nil {
			return nil, errors.Join(err, removeErr)
		}
		return nil, err
	}
	return saved, nil
}

// Attach привязывает загруженный файл к контракту. Привязывать может
// только сторона контракта, файл должен принадлежать ей же.
func (s *MediaService) Attach(ctx context.Context, contractID, actorID, mediaID uuid.UUID) (*models.ContractAttachment, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	if !contract.IsParty(actorID) {
		return nil, apperror.ErrForbidden
	}

	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "файл не найден")
		}
		return nil, err
	}
	if media.OwnerID != actorID {
		return nil, apperror.ErrForbidden
	}

	return s.media.AttachToContract(ctx, contractID, mediaID)
}

// ListAttachments возвращает вложения контракта.
func (s *MediaService) ListAttachments(ctx context.Context, contractID uuid.UUID) ([]models.ContractAttachment, error) {
	if _, err := s.contracts.GetByID(ctx, contractID); err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	return s.media.ListByContract(ctx, contractID)
}

// GetFile возвращает метаданные файла для отдачи содержимого.
func (s *MediaService) GetFile(ctx context.Context, mediaID uuid.UUID) (*models.MediaFile, error) {
	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "файл не найден")
		}
		return nil, err
	}
	return media, nil
}
