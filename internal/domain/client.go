package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reputation summarizes the timeliness of a client's most recent settlement
type Reputation string

const (
	ReputationGood    Reputation = "GOOD"
	ReputationBad     Reputation = "BAD"
	ReputationNeutral Reputation = "NEUTRAL"
)

// Client represents a borrower. TaxID and Phone are stored digits-only.
type Client struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	TaxID            string     `json:"tax_id" db:"tax_id"`
	Phone            string     `json:"phone" db:"phone"`
	Email            *string    `json:"email,omitempty" db:"email"`
	RG               *string    `json:"rg,omitempty" db:"rg"`
	Address          *string    `json:"address,omitempty" db:"address"`
	ReferenceContact *string    `json:"reference_contact,omitempty" db:"reference_contact"`
	DocURL           *string    `json:"doc_url,omitempty" db:"doc_url"`
	Reputation       Reputation `json:"reputation" db:"reputation"`
	OwnerID          string     `json:"owner_id" db:"owner_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

type RegisterClientRequest struct {
	Name             string  `json:"name" validate:"required,min=2,max=120"`
	TaxID            string  `json:"tax_id" validate:"required,cpf"`
	Phone            string  `json:"phone" validate:"required,mobile"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	RG               *string `json:"rg,omitempty" validate:"omitempty,max=20"`
	Address          *string `json:"address,omitempty" validate:"omitempty,max=255"`
	ReferenceContact *string `json:"reference_contact,omitempty" validate:"omitempty,max=255"`
}

// Document is an uploaded blob waiting to be stored
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

type DocumentResponse struct {
	URL string `json:"url"`
}
