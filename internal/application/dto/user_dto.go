package dto

import "time"

// LoginRequest entrada para autenticación contra el servidor central.
type LoginRequest struct {
	Tenant   string `json:"tenant"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse salida del login: token JWT y datos básicos del usuario.
type LoginResponse struct {
	Token     string  `json:"token"`
	ExpiresIn int     `json:"expires_in"` // segundos
	User      UserDTO `json:"user"`
}

// UserDTO usuario habilitado para el dispositivo.
type UserDTO struct {
	Username        string    `json:"username"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"password_hash,omitempty"`
	Token           string    `json:"token,omitempty"`
	SalespersonCode string    `json:"salesperson_code"`
	Status          string    `json:"status"`
	RegisteredAt    time.Time `json:"registered_at"`
}
