package models

import "time"

// Cotisation is a member's periodic due.
type Cotisation struct {
	Base
	MembreID     uint      `gorm:"index;not null" json:"membre_id"`
	Membre       *Membre   `gorm:"foreignKey:MembreID" json:"-"`
	Annee        int       `gorm:"not null;index" json:"annee"`
	Montant      float64   `gorm:"type:decimal(10,2);not null" json:"montant"`
	DateEcheance time.Time `gorm:"not null" json:"date_echeance"`

	StatutID uint    `gorm:"index;not null" json:"statut_id"` // statut de type cotisation
	Statut   *Statut `gorm:"foreignKey:StatutID" json:"statut,omitempty"`

	Paiements []Paiement `gorm:"foreignKey:CotisationID" json:"paiements,omitempty"`
}

func (Cotisation) EntityKind() string { return KindCotisation }

func (c Cotisation) StatutRef() (uint, TypeEntite) { return c.StatutID, TypeCotisation }

// EnRetard reports whether the due date has passed at now.
func (c Cotisation) EnRetard(now time.Time) bool {
	return now.After(c.DateEcheance)
}

// Payment modes.
const (
	ModeVirement = "virement"
	ModeCB       = "cb"
	ModeCheque   = "cheque"
	ModeEspeces  = "especes"
)

// Paiement is a payment made against a cotisation.
type Paiement struct {
	Base
	CotisationID uint        `gorm:"index;not null" json:"cotisation_id"`
	Cotisation   *Cotisation `gorm:"foreignKey:CotisationID" json:"-"`
	Date         time.Time   `gorm:"not null" json:"date"`
	Montant      float64     `gorm:"type:decimal(10,2);not null" json:"montant"`
	Mode         string      `gorm:"size:20;not null" json:"mode"` // virement, cb, cheque, especes
	Reference    string      `gorm:"size:100" json:"reference,omitempty"`

	StatutID uint    `gorm:"index;not null" json:"statut_id"` // statut de type paiement
	Statut   *Statut `gorm:"foreignKey:StatutID" json:"statut,omitempty"`
}

func (Paiement) EntityKind() string { return KindPaiement }

func (p Paiement) StatutRef() (uint, TypeEntite) { return p.StatutID, TypePaiement }

// ValidMode reports whether mode is a known payment mode.
func ValidMode(mode string) bool {
	switch mode {
	case ModeVirement, ModeCB, ModeCheque, ModeEspeces:
		return true
	}
	return false
}
