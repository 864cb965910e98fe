package entity

import (
	"time"

	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
)

// User representa un usuario del sistema (pertenece a una Company).
// Los roles válidos están definidos en el paquete workflow, que es quien
// los consume para decidir transiciones.
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, gerente, bodeguero, empleado
	Status       string // active, inactive, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor construye el actor de workflow correspondiente al usuario.
func (u *User) Actor() workflow.Actor {
	return workflow.Actor{UserID: u.ID, CompanyID: u.CompanyID, Role: u.Role}
}

// ValidRole indica si el rol es uno de los conocidos.
func ValidRole(role string) bool {
	switch role {
	case workflow.RoleAdmin, workflow.RoleGerente, workflow.RoleBodeguero, workflow.RoleEmpleado:
		return true
	}
	return false
}
