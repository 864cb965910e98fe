package entity

import "time"

// Company representa una empresa (tenant). Todos los datos maestros y los
// documentos están alcance-empresa.
type Company struct {
	ID        string
	Name      string
	TaxID     string // NIT o identificación tributaria
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
