package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrolink/agrolink-backend/internal/dto"
	"github.com/agrolink/agrolink-backend/internal/http/handlers/common"
	"github.com/agrolink/agrolink-backend/internal/models"
	"github.com/agrolink/agrolink-backend/internal/repository"
	"github.com/agrolink/agrolink-backend/internal/service"
)

type ContractHandler struct {
	contracts *service.ContractService
}

func NewContractHandler(contracts *service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// Create POST /contracts
func (h *ContractHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	userType, err := common.CurrentUserType(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	if userType != models.UserTypeFarmer {
		common.RespondForbidden(c, "публиковать контракты могут только фермеры")
		return
	}

	var req dto.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	deliveryDate, err := time.Parse(time.RFC3339, req.DeliveryDate)
	if err != nil {
		// Дату без времени тоже принимаем.
		deliveryDate, err = time.Parse("2006-01-02", req.DeliveryDate)
		if err != nil {
			common.RespondBadRequest(c, "дата поставки должна быть в формате RFC3339 или YYYY-MM-DD")
			return
		}
	}

	contract, err := h.contracts.Create(c.Request.Context(), userID, service.CreateContractInput{
		CropType:         req.CropType,
		Quantity:         req.Quantity,
		PricePerUnit:     req.PricePerUnit,
		DeliveryDate:     deliveryDate,
		QualityStandards: req.QualityStandards,
		PaymentTerms:     req.PaymentTerms,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// Get GET /contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// List GET /contracts
func (h *ContractHandler) List(c *gin.Context) {
	filter := repository.ContractFilter{
		Status:   c.Query("status"),
		CropType: c.Query("crop_type"),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}

	if c.Query("mine") == "true" {
		userID, err := common.CurrentUserID(c)
		if err != nil {
			common.RespondUnauthorized(c, err.Error())
			return
		}
		filter.PartyID = &userID
	} else if party := c.Query("party_id"); party != "" {
		partyID, err := uuid.Parse(party)
		if err != nil {
			common.RespondBadRequest(c, "неверный party_id")
			return
		}
		filter.PartyID = &partyID
	}

	contracts, err := h.contracts.List(c.Request.Context(), filter)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contracts": contracts, "count": len(contracts)})
}

// UpdateStatus PUT /contracts/:id/status
func (h *ContractHandler) UpdateStatus(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateContractStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите новый статус")
		return
	}

	contract, err := h.contracts.SetStatus(c.Request.Context(), id, userID, req.Status, req.Notes)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}
