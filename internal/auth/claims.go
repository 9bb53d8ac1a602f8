package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// AgentEmail doubles as the call-session identity: the signaling store keys
// caller/receiver by email, so every authenticated request must carry it.
type Claims struct {
	jwt.RegisteredClaims

	AgentID    string    `json:"agent_id"`
	AgentEmail string    `json:"agent_email"`
	Role       string    `json:"role"`
	TokenType  TokenType `json:"token_type"`
}
