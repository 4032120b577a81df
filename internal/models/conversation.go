package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation — диалог фермера и покупателя в рамках контракта.
type Conversation struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ContractID uuid.UUID `db:"contract_id" json:"contract_id"`
	FarmerID   uuid.UUID `db:"farmer_id" json:"farmer_id"`
	BuyerID    uuid.UUID `db:"buyer_id" json:"buyer_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Message — сообщение в диалоге.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	AuthorID       uuid.UUID `db:"author_id" json:"author_id"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
