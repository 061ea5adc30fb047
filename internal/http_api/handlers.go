package http_api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/casperflow/remitd/internal/escrow"
	"github.com/casperflow/remitd/internal/models"
	"github.com/casperflow/remitd/pkg/validation"
)

// PrincipalHeader carries the opaque principal of the acting party.
// Authenticating it is the job of the upstream gateway.
const PrincipalHeader = "X-Principal"

// CreateRemittanceRequest represents the JSON body for creating a remittance
type CreateRemittanceRequest struct {
	Recipient    string `json:"recipient" binding:"required"`
	TargetAmount string `json:"target_amount" binding:"required"`
	Purpose      string `json:"purpose" binding:"required"`
}

// CreateRemittanceResponse represents the success response for creation
type CreateRemittanceResponse struct {
	Success      bool   `json:"success"`
	RemittanceID uint64 `json:"remittance_id"`
}

// ContributeRequest represents the JSON body for a contribution
type ContributeRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// SetFeeRequest represents the JSON body for a platform fee update
type SetFeeRequest struct {
	FeeBps *uint64 `json:"fee_bps" binding:"required"`
}

// RemittanceResponse is the full remittance record plus derived progress
// fields.
type RemittanceResponse struct {
	*models.Remittance
	IsTargetMet        bool           `json:"is_target_met"`
	RemainingAmount    *models.Amount `json:"remaining_amount"`
	ProgressPercentage uint64         `json:"progress_percentage"`
}

func newRemittanceResponse(r *models.Remittance) RemittanceResponse {
	return RemittanceResponse{
		Remittance:         r,
		IsTargetMet:        r.IsTargetMet(),
		RemainingAmount:    r.RemainingAmount(),
		ProgressPercentage: r.ProgressPercentage(),
	}
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, escrow.ErrRemittanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, escrow.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, escrow.ErrInvalidPrincipal),
		errors.Is(err, escrow.ErrInvalidTargetAmount),
		errors.Is(err, escrow.ErrInvalidContributionAmount),
		errors.Is(err, escrow.ErrPurposeMaxLength),
		errors.Is(err, escrow.ErrFeeTooHigh):
		return http.StatusBadRequest
	case errors.Is(err, escrow.ErrAlreadyReleased),
		errors.Is(err, escrow.ErrRemittanceCancelled),
		errors.Is(err, escrow.ErrTargetNotMet),
		errors.Is(err, escrow.ErrNotCancelled),
		errors.Is(err, escrow.ErrRefundAlreadyClaimed),
		errors.Is(err, escrow.ErrNoContribution):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrContractPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, escrow.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) fail(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// callerPrincipal resolves the acting principal from the request. Returns
// false after writing the error response if the header is missing or
// malformed.
func (s *HTTPServer) callerPrincipal(c *gin.Context) (string, bool) {
	principal := c.GetHeader(PrincipalHeader)
	if principal == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "missing " + PrincipalHeader + " header",
		})
		return "", false
	}
	if err := validation.ValidatePrincipal(principal); err != nil {
		s.logger.Debug("Invalid caller principal", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid principal: " + err.Error(),
		})
		return "", false
	}
	return validation.NormalizePrincipal(principal), true
}

// remittanceID parses the :id path parameter. Returns false after writing
// the error response on bad input.
func (s *HTTPServer) remittanceID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid remittance id",
		})
		return 0, false
	}
	return id, true
}

// createRemittance is a handler for POST /remittances.
func (s *HTTPServer) createRemittance(c *gin.Context) {
	caller, ok := s.callerPrincipal(c)
	if !ok {
		return
	}

	var req CreateRemittanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := validation.ValidatePrincipal(req.Recipient); err != nil {
		s.logger.Debug("Invalid recipient principal", "error", err, "recipient", req.Recipient)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid recipient: " + err.Error(),
		})
		return
	}

	target, err := models.ParseAmount(req.TargetAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid target amount: " + err.Error(),
		})
		return
	}

	id, err := s.escrow.CreateRemittance(c.Request.Context(), caller, req.Recipient, target, req.Purpose)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info("Remittance created via API", "id", id, "creator", caller)
	c.JSON(http.StatusCreated, CreateRemittanceResponse{
		Success:      true,
		RemittanceID: id,
	})
}

// contribute is a handler for POST /remittances/:id/contribute.
func (s *HTTPServer) contribute(c *gin.Context) {
	caller, ok := s.callerPrincipal(c)
	if !ok {
		return
	}
	id, ok := s.remittanceID(c)
	if !ok {
		return
	}

	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid amount: " + err.Error(),
		})
		return
	}

	if err := s.escrow.Contribute(c.Request.Context(), caller, id, amount); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// releaseFunds is a handler for POST /remittances/:id/release.
func (s *HTTPServer) releaseFunds(c *gin.Context) {
	caller, ok := s.callerPrincipal(c)
	if !ok {
		return
	}
	id, ok := s.remittanceID(c)
	if !ok {
		return
	}

	if err := s.escrow.ReleaseFunds(c.Request.Context(), caller, id); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// cancelRemittance is a handler for POST /remittances/:id/cancel.
func (s *HTTPServer) cancelRemittance(c *gin.Context) {
	caller, ok := s.callerPrincipal(c)
	if !ok {
		return
	}
	id, ok := s.remittanceID(c)
	if !ok {
		return
	}

	if err := s.escrow.CancelRemittance(c.Request.Context(), caller, id); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// claimRefund is a handler for POST /remittances/:id/refund.
func (s *HTTPServer) claimRefund(c *gin.Context) {
	caller, ok := s.callerPrincipal(c)
	if !ok {
		return
	}
	id, ok := s.remittanceID(c)
	if !ok {
		return
	}

	if err := s.escrow.ClaimRefund(c.Request.Context(), caller, id); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// getRemittance is a handler for GET /remittances/:id.
func (s *HTTPServer) getRemittance(c *gin.Context) {
	id, ok := s.remittanceID(c)
	if !ok {
		return
	}

	remittance, err := s.escrow.GetRemittance(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newRemittanceResponse(remittance))
}

// listRemittances is a handler for GET /remittances?creator= / ?recipient=.
func (s *HTTPServer) listRemittances(c *gin.Context) {
	creator := c.Query("creator")
	recipient := c.Query("recipient")

	var (
		remittances []*models.Remittance
		err         error
	)
	switch {
	case creator != "":
		remittances, err = s.escrow.ListCreatedBy(creator)
	case recipient != "":
		remittances, err = s.escrow.ListIncomingTo(recipient)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "creator or recipient query parameter is required",
		})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	response := make([]RemittanceResponse, 0, len(remittances))
	for _, remittance := range remittances {
		response = append(response, newRemittanceResponse(remittance))
	}
	c.JSON(http.StatusOK, response)
}

// getContribution is a handler for GET /remittances/:id/contributions/:principal.
func (s *HTTPServer) getContribution(c *gin.Context) {
	id, ok := s.remittanceID(c)
	if !ok {
		return
	}

	amount, err := s.escrow.GetContribution(id, c.Param("principal"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remittance_id": id, "amount": amount})
}

// isRefundClaimed is a handler for GET /remittances/:id/refunds/:principal.
func (s *HTTPServer) isRefundClaimed(c *gin.Context) {
	id, ok := s.remittanceID(c)
	if !ok {
		return
	}

	claimed, err := s.escrow.IsRefundClaimed(id, c.Param("principal"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remittance_id": id, "claimed": claimed})
}

// listContributors is a handler for GET /remittances/:id/contributors.
func (s *HTTPServer) listContributors(c *gin.Context) {
	id, ok := s.remittanceID(c)
	if !ok {
		return
	}

	contributors, err := s.escrow.ListContributors(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remittance_id": id, "contributors": contributors})
}

// getPlatformFee is a handler for GET /platform/fee.
func (s *HTTPServer) getPlatformFee(c *gin.Context) {
	feeBps, err := s.escrow.GetPlatformFee()
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fee_bps": feeBps})
}

// setPlatformFee is a handler for PUT /platform/fee (owner only).
func (s *HTTPServer) setPlatformFee(c *gin.Context) {
	caller, ok := s.callerPrincipal(c)
	if !ok {
		return
	}

	var req SetFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := s.escrow.SetPlatformFee(caller, *req.FeeBps); err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info("Platform fee updated via API", "fee_bps", *req.FeeBps)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// pauseContract is a handler for POST /platform/pause (owner only).
func (s *HTTPServer) pauseContract(c *gin.Context) {
	caller, ok := s.callerPrincipal(c)
	if !ok {
		return
	}

	if err := s.escrow.PauseContract(caller); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// unpauseContract is a handler for POST /platform/unpause (owner only).
func (s *HTTPServer) unpauseContract(c *gin.Context) {
	caller, ok := s.callerPrincipal(c)
	if !ok {
		return
	}

	if err := s.escrow.UnpauseContract(caller); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
