package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/layer-3/signal/service"
	"github.com/rs/zerolog"
)

// APIHandlers contains HTTP handlers for the platform API endpoints
type APIHandlers struct {
	sessions    *service.SessionIssuer
	issuer      *service.KeyIssuer
	allowlist   ports.Allowlist
	deployments ports.DeploymentCatalog
	logger      zerolog.Logger
}

// NewAPIHandlers creates new API handlers
func NewAPIHandlers(
	sessions *service.SessionIssuer,
	issuer *service.KeyIssuer,
	allowlist ports.Allowlist,
	deployments ports.DeploymentCatalog,
	logger zerolog.Logger,
) *APIHandlers {
	return &APIHandlers{
		sessions:    sessions,
		issuer:      issuer,
		allowlist:   allowlist,
		deployments: deployments,
		logger:      logger,
	}
}

// Whitelist reports whether an address may log in
func (h *APIHandlers) Whitelist(c *gin.Context) {
	exists, err := h.allowlist.Contains(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.logger.Error().Err(err).Msg("allowlist lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check allowlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// ChallengeRequest is the request body for a login challenge
type ChallengeRequest struct {
	Address string `json:"address" binding:"required"`
}

// Challenge hands out a login challenge for an allowlisted address
func (h *APIHandlers) Challenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	challenge, token, err := h.sessions.CreateChallenge(c.Request.Context(), req.Address)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		case errors.Is(err, core.ErrNotAllowlisted):
			c.JSON(http.StatusForbidden, gin.H{"error": "Address is not allowlisted"})
		default:
			h.logger.Error().Err(err).Msg("challenge creation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": string(challenge.Message()),
	})
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Challenge string `json:"challenge" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Login exchanges a signed challenge for a session token
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.sessions.Login(c.Request.Context(), req.Challenge, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidToken),
			errors.Is(err, core.ErrInvalidSignature),
			errors.Is(err, core.ErrInvalidAddress):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid challenge or signature"})
		case errors.Is(err, core.ErrChallengeUsed):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Challenge already used"})
		case errors.Is(err, core.ErrNotAllowlisted):
			c.JSON(http.StatusForbidden, gin.H{"error": "Address is not allowlisted"})
		default:
			h.logger.Error().Err(err).Msg("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CreateKey verifies a signed CREATE_KEY request and issues a secret
func (h *APIHandlers) CreateKey(c *gin.Context) {
	claims, ok := sessionClaims(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	var req core.SignedKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" || req.Signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	secret, _, err := h.issuer.Issue(c.Request.Context(), claims, &req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to create key"

		// Map specific errors to appropriate status codes
		switch {
		case errors.Is(err, core.ErrInvalidKeyRequest):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid key request"
		case errors.Is(err, core.ErrPermissionMismatch):
			statusCode = http.StatusForbidden
			errorMsg = "Payload does not match session"
		case errors.Is(err, core.ErrInvalidSignature), errors.Is(err, core.ErrInvalidAddress):
			statusCode = http.StatusForbidden
			errorMsg = "Invalid signature"
		default:
			h.logger.Error().Err(err).Msg("key issuance failed")
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": secret})
}

// APIKeyHeader carries an issued API key secret
const APIKeyHeader = "X-API-Key"

// VerifyKey describes the API key sent in the X-API-Key header, so that
// platform services can authorize calls made with it
func (h *APIHandlers) VerifyKey(c *gin.Context) {
	secret := c.GetHeader(APIKeyHeader)
	if secret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
		return
	}

	key, err := h.issuer.Lookup(c.Request.Context(), secret)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}
		h.logger.Error().Err(err).Msg("api key lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          key.ID,
		"owner_id":    key.OwnerID,
		"instance_id": key.InstanceID,
		"permissions": key.Permissions,
		"created_at":  key.CreatedAt,
		"expires_at":  key.ExpiresAt,
	})
}

// Deployments lists the deployments of an application
func (h *APIHandlers) Deployments(c *gin.Context) {
	deployments, err := h.deployments.Deployments(c.Request.Context(), c.Param("app_id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("listing deployments failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list deployments"})
		return
	}

	c.JSON(http.StatusOK, deployments)
}
