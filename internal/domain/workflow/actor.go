package workflow

// Roles válidos para usuarios del sistema.
const (
	RoleAdmin     = "admin"     // administración total
	RoleGerente   = "gerente"   // aprueba, rechaza y cierra documentos
	RoleBodeguero = "bodeguero" // alistamiento y despacho en bodega
	RoleEmpleado  = "empleado"  // crea y envía sus propios documentos
)

// Actor es quien intenta una acción sobre un documento. Lo entrega la capa de
// sesión (claims del JWT); para el dominio es de solo lectura. CompanyID acota
// al actor a su empresa: los guards deciden dentro de la empresa, el alcance
// entre empresas lo verifican handler y Document Service contra el documento.
type Actor struct {
	UserID    string
	CompanyID string
	Role      string
}

// HasRole indica si el rol del actor está dentro del conjunto dado.
func (a Actor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// DocumentRef es la vista mínima de un documento que necesitan los guards del
// grafo de estados: el estado actual y quién lo creó.
type DocumentRef struct {
	Status    Status
	CreatedBy string
}
