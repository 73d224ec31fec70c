package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores de la emisión fiscal.
var (
	// ErrIntegrationNotImplemented lo devuelven los proveedores que aún no tienen integración real.
	// No es transitorio: reintentar no cambia el resultado.
	ErrIntegrationNotImplemented = errors.New("integración no implementada")
	ErrUnknownProvider           = errors.New("proveedor fiscal desconocido")
	ErrInvalidTransition         = errors.New("transición de estado fiscal inválida")
	ErrEmissionInProgress        = errors.New("ya hay una emisión en curso para el pedido")
)
