package entity

import "time"

// Salesperson vendedor de la empresa.
type Salesperson struct {
	Tenant       string
	Code         string
	Name         string
	RouteCode    string
	Phone        string
	Email        string
	Status       string
	RegisteredAt time.Time
}

// Route ruta de visitas asignada a un vendedor.
type Route struct {
	Tenant          string
	Code            string
	Description     string
	SalespersonCode string
	Status          string
	RegisteredAt    time.Time
}
