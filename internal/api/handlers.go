package api

import (
	"net/http"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/agora-market/agora/internal/cache"
	"github.com/agora-market/agora/internal/market/types"
)

// respondError maps engine sentinel errors to HTTP statuses and attaches the
// recovery suggestion, surfacing the error kind verbatim per the collaborator
// contract.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case sdkerrors.IsOf(err, types.ErrNotFound):
		status = http.StatusNotFound
	case sdkerrors.IsOf(err, types.ErrUnauthorized):
		status = http.StatusForbidden
	case sdkerrors.IsOf(err, types.ErrInvalidPrice, types.ErrInvalidName, types.ErrInvalidRating, types.ErrSelfService):
		status = http.StatusBadRequest
	case sdkerrors.IsOf(err, types.ErrNotActive, types.ErrInvalidState, types.ErrTimeoutNotReached,
		types.ErrDuplicateRating, types.ErrReentrancy):
		status = http.StatusConflict
	case sdkerrors.IsOf(err, types.ErrTransferFailed):
		status = http.StatusPaymentRequired
	case sdkerrors.IsOf(err, types.ErrPaused):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"error":    err.Error(),
		"recovery": types.GetRecoverySuggestion(err),
	})
}

func parseID(c *gin.Context) (uint64, bool) {
	id := cast.ToUint64(c.Param("id"))
	if id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func parseAmount(c *gin.Context, raw string) (math.Int, bool) {
	amount, ok := math.NewIntFromString(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount: " + raw})
		return math.Int{}, false
	}
	return amount, true
}

type registerListingRequest struct {
	Owner       string `json:"owner" binding:"required"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price" binding:"required"`
}

func (s *Server) handleRegisterListing(c *gin.Context) {
	var req registerListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, ok := parseAmount(c, req.Price)
	if !ok {
		return
	}
	id, err := s.engine.RegisterListing(req.Owner, req.Name, req.Description, price)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing_id": id})
}

type updateListingRequest struct {
	Caller      string `json:"caller" binding:"required"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price" binding:"required"`
	Active      bool   `json:"active"`
}

func (s *Server) handleUpdateListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, ok := parseAmount(c, req.Price)
	if !ok {
		return
	}
	if err := s.engine.UpdateListing(id, req.Caller, req.Name, req.Description, price, req.Active); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing_id": id})
}

type callerRequest struct {
	Caller string `json:"caller" binding:"required"`
}

func (s *Server) handleDeactivateListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req callerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.DeactivateListing(id, req.Caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing_id": id})
}

func (s *Server) handleGetListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if s.cache != nil {
		var cached types.Listing
		if hit, err := s.cache.Get(ctx, cache.ListingKey(id), &cached); err == nil && hit {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	listing, err := s.engine.GetListing(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cache.ListingKey(id), listing)
	}
	c.JSON(http.StatusOK, listing)
}

func (s *Server) handleListActive(c *gin.Context) {
	offset := cast.ToInt(c.DefaultQuery("offset", "0"))
	limit := cast.ToInt(c.DefaultQuery("limit", "50"))
	if limit > 500 {
		limit = 500
	}

	ctx := c.Request.Context()
	type activePage struct {
		Listings []types.Listing `json:"listings"`
		HasMore  bool            `json:"has_more"`
	}
	if s.cache != nil {
		var cached activePage
		if hit, err := s.cache.Get(ctx, cache.ActivePageKey(offset, limit), &cached); err == nil && hit {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	listings, hasMore, err := s.store.ActiveListings(offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	page := activePage{Listings: listings, HasMore: hasMore}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cache.ActivePageKey(offset, limit), page)
	}
	c.JSON(http.StatusOK, page)
}

type batchRequest struct {
	IDs []uint64 `json:"ids" binding:"required"`
}

func (s *Server) handleBatchListings(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.IDs) > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at most 100 ids per batch"})
		return
	}
	listings, err := s.engine.GetListings(req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

type createRequestRequest struct {
	ListingID uint64 `json:"listing_id" binding:"required"`
	Buyer     string `json:"buyer" binding:"required"`
}

func (s *Server) handleCreateRequest(c *gin.Context) {
	var req createRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.engine.CreateRequest(req.ListingID, req.Buyer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request_id": id})
}

func (s *Server) handleMarkComplete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req callerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.MarkComplete(id, req.Caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": id})
}

type confirmRequest struct {
	Caller string `json:"caller" binding:"required"`
	Rating uint32 `json:"rating"`
}

func (s *Server) handleConfirmCompletion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.ConfirmCompletion(id, req.Caller, req.Rating); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": id})
}

func (s *Server) handleClaimAfterTimeout(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req callerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.ClaimAfterTimeout(id, req.Caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": id})
}

func (s *Server) handleCancelRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req callerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.CancelRequest(id, req.Caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": id})
}

func (s *Server) handleGetRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	req, err := s.engine.GetRequest(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":               req.ID,
		"listing_id":       req.ListingID,
		"buyer":            req.Buyer,
		"provider":         req.Provider,
		"price":            req.Price.String(),
		"status":           req.Status.String(),
		"created_at":       req.CreatedAt,
		"completed_at":     req.CompletedAt,
		"rating_submitted": req.RatingSubmitted,
	})
}

func (s *Server) handleTimeoutStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	remaining, claimable := s.engine.TimeoutStatus(id)
	c.JSON(http.StatusOK, gin.H{
		"seconds_remaining": remaining,
		"claimable":         claimable,
	})
}

func (s *Server) handleGetReputation(c *gin.Context) {
	provider := c.Param("provider")

	ctx := c.Request.Context()
	if s.cache != nil {
		var cached types.ReputationRecord
		if hit, err := s.cache.Get(ctx, cache.ReputationKey(provider), &cached); err == nil && hit {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	average, ratings, settlements, err := s.engine.GetReputation(provider)
	if err != nil {
		respondError(c, err)
		return
	}
	rec := types.ReputationRecord{
		Provider:        provider,
		RatingCount:     ratings,
		AverageScaled:   average,
		SettlementCount: settlements,
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cache.ReputationKey(provider), rec)
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleTotals(c *gin.Context) {
	listings, requests, active, err := s.engine.Totals()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"listings": listings,
		"requests": requests,
		"active":   active,
	})
}
