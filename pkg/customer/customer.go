// Package customer implements C2 Tenant Registry: the global mapping
// between customers, their domains, and their tenant schemas.
package customer

import "time"

// Status values a Customer's lifecycle moves through.
const (
	StatusTrial     = "TRIAL"
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
)

// Customer is the single entity the public (global) namespace owns.
type Customer struct {
	ID                      int64
	Name                    string
	Domain                  string
	TenantSchema            string
	Status                  string
	MaxUsers                int
	MaxCertificatesPerMonth int
	CreatedAt               time.Time
}

// NewCustomerParams are the inputs to Registry.Onboard. TenantSchema is
// optional — when empty, it is generated from Domain.
type NewCustomerParams struct {
	Name                    string
	Domain                  string
	TenantSchema            string
	MaxUsers                int
	MaxCertificatesPerMonth int
}
