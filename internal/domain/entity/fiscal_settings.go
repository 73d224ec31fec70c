package entity

import "time"

// FiscalMode define el canal de emisión de una tienda.
type FiscalMode string

const (
	FiscalModeNone      FiscalMode = "none" // emisión deshabilitada
	FiscalModeNFe       FiscalMode = "nfe"
	FiscalModeSAT       FiscalMode = "sat"
	FiscalModeECF       FiscalMode = "ecf"
	FiscalModeSimulated FiscalMode = "simulated"
)

// NFeProvider proveedor contratado para NF-e (informativo para el adaptador NF-e).
type NFeProvider string

const (
	NFeProviderNone        NFeProvider = "none"
	NFeProviderENotas      NFeProvider = "enotas"
	NFeProviderPlugNotas   NFeProvider = "plugnotas"
	NFeProviderNuvemFiscal NFeProvider = "nuvemfiscal"
)

// Identificadores de plug-ins de proveedor (camino secundario: emit/status/cancel).
const (
	ProviderSimulated   = "simulated"
	ProviderPlugNotas   = "plugnotas"
	ProviderNuvemFiscal = "nuvemfiscal"
	ProviderNotaFacil   = "notafacil"
)

// FiscalSettings configuración fiscal de una tienda. Hay exactamente una por tienda;
// se crea con Mode=none en el primer acceso y nunca se borra.
type FiscalSettings struct {
	ID             string
	StoreID        string
	Mode           FiscalMode
	SATEndpointURL string // bridge local SAT; vacío = fallback a simulación
	ECFEndpointURL string // bridge local ECF; vacío = fallback a simulación
	NFeProvider    NFeProvider
	ProviderID     string // plug-in usado por status/cancel (ver Provider*)
	StoreName      string // encabezado de los cupones impresos
	CashierNumber  string // número de caja/terminal enviado al bridge
	LastUpdated    time.Time
}

// NewDefaultFiscalSettings construye la configuración inicial (emisión deshabilitada).
func NewDefaultFiscalSettings(id, storeID string, now time.Time) *FiscalSettings {
	return &FiscalSettings{
		ID:          id,
		StoreID:     storeID,
		Mode:        FiscalModeNone,
		NFeProvider: NFeProviderNone,
		ProviderID:  ProviderSimulated,
		LastUpdated: now,
	}
}

// EndpointFor devuelve el endpoint del bridge local para el modo dado ("" si no aplica).
func (s *FiscalSettings) EndpointFor(mode FiscalMode) string {
	switch mode {
	case FiscalModeSAT:
		return s.SATEndpointURL
	case FiscalModeECF:
		return s.ECFEndpointURL
	default:
		return ""
	}
}

// IsValidFiscalMode indica si el modo es uno de los soportados.
func IsValidFiscalMode(m FiscalMode) bool {
	switch m {
	case FiscalModeNone, FiscalModeNFe, FiscalModeSAT, FiscalModeECF, FiscalModeSimulated:
		return true
	}
	return false
}
