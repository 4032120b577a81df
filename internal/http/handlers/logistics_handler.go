package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrolink/agrolink-backend/internal/dto"
	"github.com/agrolink/agrolink-backend/internal/http/handlers/common"
	"github.com/agrolink/agrolink-backend/internal/service"
)

type LogisticsHandler struct {
	logistics *service.LogisticsService
}

func NewLogisticsHandler(logistics *service.LogisticsService) *LogisticsHandler {
	return &LogisticsHandler{logistics: logistics}
}

// ListProviders GET /logistics/providers
// Каталог перевозчиков, фильтруется по типу и возможностям.
func (h *LogisticsHandler) ListProviders(c *gin.Context) {
	providers, err := h.logistics.ListProviders(c.Request.Context(), c.Query("type"), c.Query("capability"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"providers": providers, "count": len(providers)})
}

// RequestQuotes POST /logistics/quotes
func (h *LogisticsHandler) RequestQuotes(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.RequestQuotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите contract_id, адреса, вес и тип сервиса")
		return
	}
	contractID, err := uuid.Parse(req.ContractID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный contract_id")
		return
	}

	quotes, err := h.logistics.RequestQuotes(c.Request.Context(), userID, service.QuoteRequestInput{
		ContractID:         contractID,
		OriginAddress:      req.OriginAddress,
		DestinationAddress: req.DestinationAddress,
		Weight:             req.Weight,
		ServiceType:        req.ServiceType,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"quotes": quotes, "count": len(quotes)})
}

// ListQuotes GET /contracts/:id/quotes
func (h *LogisticsHandler) ListQuotes(c *gin.Context) {
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

	quotes, err := h.logistics.ListQuotes(c.Request.Context(), userID, contractID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quotes": quotes, "count": len(quotes)})
}

// BookShipment POST /logistics/shipments
func (h *LogisticsHandler) BookShipment(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.BookShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите quote_id и дату забора груза")
		return
	}
	quoteID, err := uuid.Parse(req.QuoteID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный quote_id")
		return
	}
	pickupDate, err := time.Parse(time.RFC3339, req.PickupDate)
	if err != nil {
		// Дату без времени тоже принимаем.
		pickupDate, err = time.Parse("2006-01-02", req.PickupDate)
		if err != nil {
			common.RespondBadRequest(c, "дата забора должна быть в формате RFC3339 или YYYY-MM-DD")
			return
		}
	}

	shipment, err := h.logistics.BookShipment(c.Request.Context(), userID, service.BookShipmentInput{
		QuoteID:             quoteID,
		PickupDate:          pickupDate,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, shipment)
}

// ListShipments GET /contracts/:id/shipments
func (h *LogisticsHandler) ListShipments(c *gin.Context) {
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

	shipments, err := h.logistics.ListShipments(c.Request.Context(), userID, contractID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shipments": shipments, "count": len(shipments)})
}
