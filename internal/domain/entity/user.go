package entity

import "time"

// User usuario que puede iniciar sesión en el dispositivo (sincronizado desde el servidor).
type User struct {
	Tenant          string
	Username        string
	Name            string
	PasswordHash    string // bcrypt, generado por el servidor
	Token           string // JWT emitido por el servidor para este usuario
	SalespersonCode string
	Status          string
	RegisteredAt    time.Time
}
