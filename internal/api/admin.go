package api

import (
	"crypto/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims are the JWT claims accepted on administrative endpoints. The
// Subject carries the caller identity handed to the engine, which still
// enforces its own admin check; the token only gates the HTTP surface.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AuthManager validates admin bearer tokens.
type AuthManager struct {
	secret []byte
}

// NewAuthManager creates a token validator. An empty secret gets a random
// one, which effectively disables remote admin access until configured.
func NewAuthManager(secret string) *AuthManager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &AuthManager{secret: key}
}

// IssueToken mints a short-lived admin token for subject. Used by operators
// and tests.
func (am *AuthManager) IssueToken(subject string, ttl time.Duration) (string, error) {
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Role: "admin",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(am.secret)
}

// Middleware rejects requests without a valid admin bearer token and stores
// the token subject as the caller identity.
func (am *AuthManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims := &AdminClaims{}
		token, err := jwt.ParseWithClaims(
			strings.TrimPrefix(header, "Bearer "),
			claims,
			func(t *jwt.Token) (interface{}, error) { return am.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil || !token.Valid || claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			return
		}

		c.Set("caller", claims.Subject)
		c.Next()
	}
}

func adminCaller(c *gin.Context) string {
	caller, _ := c.Get("caller")
	s, _ := caller.(string)
	return s
}

func (s *Server) handlePause(c *gin.Context) {
	if err := s.engine.Pause(adminCaller(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (s *Server) handleUnpause(c *gin.Context) {
	if err := s.engine.Unpause(adminCaller(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

type withdrawRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

func (s *Server) handleEmergencyWithdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}
	if err := s.engine.EmergencyWithdraw(adminCaller(c), req.Recipient, amount); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipient": req.Recipient, "amount": req.Amount})
}

func (s *Server) handleInvariants(c *gin.Context) {
	msg, broken := s.engine.AllInvariants()
	status := http.StatusOK
	if broken {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"report": msg, "broken": broken})
}
