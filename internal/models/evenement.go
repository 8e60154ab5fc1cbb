package models

import "time"

// Evenement is an event organised by the association (assemblée générale, sortie...).
type Evenement struct {
	Base
	Titre       string     `gorm:"size:200;not null" json:"titre"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Lieu        string     `gorm:"size:255" json:"lieu,omitempty"`
	DateDebut   time.Time  `gorm:"not null;index" json:"date_debut"`
	DateFin     *time.Time `json:"date_fin,omitempty"`

	StatutID uint    `gorm:"index;not null" json:"statut_id"` // statut de type evenement
	Statut   *Statut `gorm:"foreignKey:StatutID" json:"statut,omitempty"`
}

func (Evenement) EntityKind() string { return KindEvenement }

func (e Evenement) StatutRef() (uint, TypeEntite) { return e.StatutID, TypeEvenement }

// Duree returns the event duration, zero when no end date is set.
func (e Evenement) Duree() time.Duration {
	if e.DateFin == nil {
		return 0
	}
	return e.DateFin.Sub(e.DateDebut)
}
