package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arman-dn/fleetops-contracts/internal/http/middleware"
	"github.com/arman-dn/fleetops-contracts/internal/model"
	"github.com/arman-dn/fleetops-contracts/internal/service"
)

type Handler struct {
	contracts *service.ContractService
	log       zerolog.Logger
}

func NewHandler(contracts *service.ContractService, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/contracts", h.createContract)
	protected.GET("/contracts/:id", h.getContract)
	protected.PUT("/contracts/:id", h.editContract)
	protected.POST("/contracts/:id/confirm", h.confirmContract)
	protected.POST("/contracts/:id/activate", h.activateContract)
	protected.POST("/contracts/:id/complete", h.completeContract)
	protected.POST("/contracts/:id/close", h.closeContract)
	protected.POST("/contracts/:id/payments/deposit", h.recordDeposit)
	protected.POST("/contracts/:id/payments/final", h.recordFinalPayment)
	protected.POST("/contracts/:id/payments/refund", h.recordRefund)
	protected.POST("/contracts/:id/disable", h.disableContract)
	protected.POST("/contracts/:id/enable", h.enableContract)
	protected.GET("/contracts/:id/edits", h.listEdits)
	protected.GET("/contracts/:id/audit", h.listAuditTrail)
	protected.GET("/contracts/:id/receipts/:kind", h.printReceipt)
	protected.GET("/vehicles/:id/contracts", h.listVehicleContracts)
	protected.GET("/vehicles/:id/availability", h.vehicleAvailability)
	protected.POST("/audit/export", h.exportAuditTrail)
}

type contractTermsRequest struct {
	CustomerID   string `json:"customer_id" binding:"required"`
	VehicleID    string `json:"vehicle_id" binding:"required"`
	HirerType    string `json:"hirer_type" binding:"required"`
	SponsorID    string `json:"sponsor_id"`
	CompanyID    string `json:"company_id"`
	RentalType   string `json:"rental_type" binding:"required"`
	StartDate    string `json:"start_date" binding:"required"`
	EndDate      string `json:"end_date" binding:"required"`
	Rate         string `json:"rate" binding:"required"`
	MileageLimit int64  `json:"mileage_limit"`
	ExtraKmRate  string `json:"extra_km_rate"`
}

func (req contractTermsRequest) toInput() (service.ContractTermsInput, error) {
	var terms service.ContractTermsInput

	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return terms, errors.New("invalid customer_id")
	}
	vehicleID, err := uuid.Parse(strings.TrimSpace(req.VehicleID))
	if err != nil {
		return terms, errors.New("invalid vehicle_id")
	}

	var sponsorID, companyID *uuid.UUID
	if strings.TrimSpace(req.SponsorID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(req.SponsorID))
		if err != nil {
			return terms, errors.New("invalid sponsor_id")
		}
		sponsorID = &id
	}
	if strings.TrimSpace(req.CompanyID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(req.CompanyID))
		if err != nil {
			return terms, errors.New("invalid company_id")
		}
		companyID = &id
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return terms, errors.New("invalid start_date")
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return terms, errors.New("invalid end_date")
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate))
	if err != nil {
		return terms, errors.New("invalid rate")
	}
	extraKmRate := decimal.Zero
	if strings.TrimSpace(req.ExtraKmRate) != "" {
		extraKmRate, err = decimal.NewFromString(strings.TrimSpace(req.ExtraKmRate))
		if err != nil {
			return terms, errors.New("invalid extra_km_rate")
		}
	}

	return service.ContractTermsInput{
		CustomerID:   customerID,
		VehicleID:    vehicleID,
		HirerType:    model.HirerType(strings.ToUpper(strings.TrimSpace(req.HirerType))),
		SponsorID:    sponsorID,
		CompanyID:    companyID,
		RentalType:   model.RentalType(strings.ToUpper(strings.TrimSpace(req.RentalType))),
		StartDate:    start,
		EndDate:      end,
		Rate:         rate,
		MileageLimit: req.MileageLimit,
		ExtraKmRate:  extraKmRate,
	}, nil
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req contractTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	terms, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.CreateContract(c.Request.Context(), service.CreateContractInput{
		Terms:     terms,
		Principal: principal,
		IP:        c.ClientIP(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (h *Handler) getContract(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.GetContract(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

type editContractRequest struct {
	contractTermsRequest
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) editContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req editContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	terms, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.EditContract(c.Request.Context(), service.EditContractInput{
		ContractID: id,
		Terms:      terms,
		Reason:     req.Reason,
		Principal:  principal,
		IP:         c.ClientIP(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) confirmContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	contract, err := h.contracts.ConfirmContract(c.Request.Context(), id, principal, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

type activateContractRequest struct {
	OdometerStart    int64  `json:"odometer_start"`
	FuelLevelStart   string `json:"fuel_level_start" binding:"required"`
	VehicleCondition string `json:"vehicle_condition"`
}

func (h *Handler) activateContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req activateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.ActivateContract(c.Request.Context(), service.ActivateContractInput{
		ContractID:       id,
		OdometerStart:    req.OdometerStart,
		FuelLevelStart:   req.FuelLevelStart,
		VehicleCondition: req.VehicleCondition,
		Principal:        principal,
		IP:               c.ClientIP(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

type completeContractRequest struct {
	OdometerEnd  int64  `json:"odometer_end"`
	FuelLevelEnd string `json:"fuel_level_end" binding:"required"`
	FuelCharge   string `json:"fuel_charge"`
	DamageCharge string `json:"damage_charge"`
	OtherCharges string `json:"other_charges"`
}

func (h *Handler) completeContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req completeContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fuelCharge, err := parseOptionalAmount(req.FuelCharge)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fuel_charge"})
		return
	}
	damageCharge, err := parseOptionalAmount(req.DamageCharge)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid damage_charge"})
		return
	}
	otherCharges, err := parseOptionalAmount(req.OtherCharges)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid other_charges"})
		return
	}

	contract, err := h.contracts.CompleteContract(c.Request.Context(), service.CompleteContractInput{
		ContractID:   id,
		OdometerEnd:  req.OdometerEnd,
		FuelLevelEnd: req.FuelLevelEnd,
		FuelCharge:   fuelCharge,
		DamageCharge: damageCharge,
		OtherCharges: otherCharges,
		Principal:    principal,
		IP:           c.ClientIP(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) closeContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	contract, err := h.contracts.CloseContract(c.Request.Context(), id, principal, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

type paymentRequest struct {
	Method string `json:"method" binding:"required"`
}

func (h *Handler) recordDeposit(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.RecordDeposit(c.Request.Context(), id, req.Method, principal, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) recordFinalPayment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.RecordFinalPayment(c.Request.Context(), id, req.Method, principal, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) recordRefund(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	contract, err := h.contracts.RecordRefund(c.Request.Context(), id, principal, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) disableContract(c *gin.Context) {
	h.setDisabled(c, true)
}

func (h *Handler) enableContract(c *gin.Context) {
	h.setDisabled(c, false)
}

func (h *Handler) setDisabled(c *gin.Context, disabled bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	contract, err := h.contracts.SetContractDisabled(c.Request.Context(), id, disabled, principal, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) listEdits(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	edits, err := h.contracts.ListEdits(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, edits)
}

func (h *Handler) listAuditTrail(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entries, err := h.contracts.ListAuditTrail(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) printReceipt(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var kind model.ReceiptKind
	switch strings.ToLower(strings.TrimSpace(c.Param("kind"))) {
	case "deposit":
		kind = model.ReceiptDeposit
	case "final":
		kind = model.ReceiptFinalPayment
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt kind"})
		return
	}

	result, err := h.contracts.PrintReceipt(c.Request.Context(), id, kind, principal, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) listVehicleContracts(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	contracts, err := h.contracts.ListContractsByVehicle(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts)
}

func (h *Handler) vehicleAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	start, err := parseDate(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
		return
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end"})
		return
	}

	var exclude *uuid.UUID
	if raw := strings.TrimSpace(c.Query("exclude_contract_id")); raw != "" {
		excludeID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exclude_contract_id"})
			return
		}
		exclude = &excludeID
	}

	available, err := h.contracts.IsVehicleAvailable(c.Request.Context(), id, start, end, exclude)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

type exportAuditRequest struct {
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

func (h *Handler) exportAuditTrail(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req exportAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := parseDate(req.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}

	result, err := h.contracts.ExportAuditTrail(c.Request.Context(), start, end, principal, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrEditReasonRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrContractLocked),
		errors.Is(err, service.ErrVehicleUnavailable),
		errors.Is(err, service.ErrStateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("contract operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
