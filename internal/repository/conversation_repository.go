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

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository хранит переписку сторон контракта.
type ConversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateIfAbsent создаёт диалог для контракта, если его ещё нет.
// Один контракт — один диалог.
func (r *ConversationRepository) CreateIfAbsent(ctx context.Context, contractID, farmerID, buyerID uuid.UUID) (*models.Conversation, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (contract_id, farmer_id, buyer_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (contract_id) DO NOTHING
	`, contractID, farmerID, buyerID)
	if err != nil {
		return nil, fmt.Errorf("conversation repository: create %w", err)
	}
	return r.GetByContractID(ctx, contractID)
}

// GetByContractID возвращает диалог контракта.
func (r *ConversationRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.GetContext(ctx, &conversation, `SELECT * FROM conversations WHERE contract_id = $1`, contractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation repository: get by contract id %w", err)
	}
	return &conversation, nil
}

// GetByID возвращает диалог по идентификатору.
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.GetContext(ctx, &conversation, `SELECT * FROM conversations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation repository: get by id %w", err)
	}
	return &conversation, nil
}

// ListByUser возвращает диалоги, где пользователь является стороной.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.SelectContext(ctx, &conversations, `
		SELECT * FROM conversations
		WHERE farmer_id = $1 OR buyer_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("conversation repository: list by user %w", err)
	}
	return conversations, nil
}

// CreateMessage сохраняет сообщение в диалоге.
func (r *ConversationRepository) CreateMessage(ctx context.Context, conversationID, authorID uuid.UUID, content string) (*models.Message, error) {
	var message models.Message
	query := `
		INSERT INTO messages (conversation_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING *
	`
	err := r.db.GetContext(ctx, &message, query, conversationID, authorID, content)
	if err != nil {
		return nil, fmt.Errorf("conversation repository: create message %w", err)
	}
	return &message, nil
}

// ListMessages возвращает сообщения диалога в хронологическом порядке.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("conversation repository: list messages %w", err)
	}
	return messages, nil
}
