package models

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	// RoleAgent acts on behalf of students, e.g. a classroom integration.
	RoleAgent Role = "agent"
)

var ValidRoles = map[Role]bool{
	RoleStudent: true,
	RoleAdmin:   true,
	RoleAgent:   true,
}

// Privileged reports whether r may act for another user.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleAgent
}

type User struct {
	ID                   int64     `json:"id"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	Username             string    `json:"username"`
	Password             string    `json:"-"`
	Role                 Role      `json:"role"`
	InitialLexileMeasure float64   `json:"initial_lexile_measure"`
	CurrentLexileMeasure float64   `json:"current_lexile_measure"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int64
	Role   Role
}

// CanActFor reports whether the principal may act as userID.
func (p Principal) CanActFor(userID int64) bool {
	return p.UserID == userID || p.Role.Privileged()
}

type RegisterRequest struct {
	Email                string   `json:"email"`
	Name                 string   `json:"name"`
	Password             string   `json:"password"`
	InitialLexileMeasure *float64 `json:"initial_lexile_measure,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ErrorResponse struct {
	Error   string     `json:"error"`
	Reason  string     `json:"reason,omitempty"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}
