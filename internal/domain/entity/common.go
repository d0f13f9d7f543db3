package entity

// Estados lógicos de los registros de referencia (company, product, client, ...).
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)
