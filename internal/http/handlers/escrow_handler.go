package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrolink/agrolink-backend/internal/dto"
	"github.com/agrolink/agrolink-backend/internal/http/handlers/common"
	"github.com/agrolink/agrolink-backend/internal/service"
)

type EscrowHandler struct {
	escrows *service.EscrowService
}

func NewEscrowHandler(escrows *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrows: escrows}
}

// Open POST /payments/escrow
// Создаёт escrow счёт контракта и первую транзакцию пополнения.
func (h *EscrowHandler) Open(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.OpenEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите contract_id")
		return
	}
	contractID, err := uuid.Parse(req.ContractID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный contract_id")
		return
	}

	opening, err := h.escrows.Open(c.Request.Context(), contractID, userID, req.PaymentMethod)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OpenEscrowResponse{
		EscrowID:      opening.Escrow.ID,
		TransactionID: opening.Transaction.ID,
		Amount:        opening.Escrow.TotalAmount,
		Commission:    opening.Escrow.PlatformCommission,
		FarmerAmount:  opening.Escrow.FarmerAmount,
	})
}

// Get GET /payments/escrow/:id
func (h *EscrowHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	escrowID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.Get(c.Request.Context(), escrowID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, escrow)
}

// GetByContract GET /contracts/:id/escrow
func (h *EscrowHandler) GetByContract(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.GetByContract(c.Request.Context(), contractID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, escrow)
}

// ListVerifications GET /contracts/:id/verifications
func (h *EscrowHandler) ListVerifications(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	verifications, err := h.escrows.ListVerifications(c.Request.Context(), contractID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"verifications": verifications, "count": len(verifications)})
}

// ListMine GET /payments/escrow
func (h *EscrowHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	escrows, err := h.escrows.ListMine(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"escrow_accounts": escrows, "count": len(escrows)})
}

// CreateIntent POST /payments/create-intent
func (h *EscrowHandler) CreateIntent(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите contract_id и сумму")
		return
	}
	contractID, err := uuid.Parse(req.ContractID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный contract_id")
		return
	}

	result, err := h.escrows.CreateIntent(c.Request.Context(), contractID, userID, req.Amount)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CreateIntentResponse{
		ClientSecret:    result.ClientSecret,
		PaymentIntentID: result.PaymentIntentID,
		TransactionID:   result.Transaction.ID,
	})
}

// ProcessPayment POST /payments/process
func (h *EscrowHandler) ProcessPayment(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите transaction_id")
		return
	}
	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный transaction_id")
		return
	}

	escrow, err := h.escrows.ProcessPayment(c.Request.Context(), transactionID, userID, req.PaymentDetails.CardNumber)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Платёж проведён, средства заморожены на escrow счёте",
		Data:    escrow,
	})
}

// Release POST /payments/release
func (h *EscrowHandler) Release(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.ReleaseEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите escrow_id")
		return
	}
	escrowID, err := uuid.Parse(req.EscrowID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный escrow_id")
		return
	}

	escrow, err := h.escrows.Release(c.Request.Context(), escrowID, userID, req.VerificationNotes)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReleaseResponse{
		FarmerAmount: escrow.FarmerAmount,
		Commission:   escrow.PlatformCommission,
	})
}
