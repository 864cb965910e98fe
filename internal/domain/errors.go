package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")

	// ErrInvalidTransition se rechaza en cliente, antes de cualquier llamada de red.
	// Si llega a un usuario final es un bug: el resolutor de acciones debió ocultarla.
	ErrInvalidTransition = errors.New("transición de estado no permitida")

	// ErrDocumentLocked indica que el documento ya no está en un estado editable.
	ErrDocumentLocked = errors.New("el documento no es editable en su estado actual")
)
