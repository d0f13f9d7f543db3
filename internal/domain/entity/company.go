package entity

import "time"

// Company datos de la empresa (tenant) dueña de la base local. Una fila por base.
type Company struct {
	Tenant       string // tax id normalizado (solo dígitos)
	Code         string
	Name         string
	TradeName    string
	TaxID        string // tal como lo entrega el servidor (con o sin formato)
	Address      string
	City         string
	State        string
	Phone        string
	Email        string
	Status       string // active, inactive
	RegisteredAt time.Time
}
