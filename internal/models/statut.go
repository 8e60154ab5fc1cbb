package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TypeEntite partitions the statut taxonomy by owning entity.
type TypeEntite string

const (
	TypeGlobal     TypeEntite = "global"
	TypeMembre     TypeEntite = "membre"
	TypeCotisation TypeEntite = "cotisation"
	TypePaiement   TypeEntite = "paiement"
	TypeEvenement  TypeEntite = "evenement"
)

// TypesEntite lists every valid TypeEntite.
var TypesEntite = []TypeEntite{TypeGlobal, TypeMembre, TypeCotisation, TypePaiement, TypeEvenement}

// ErrInvalidTypeEntite is returned when a Statut carries an unknown type.
var ErrInvalidTypeEntite = errors.New("invalid_type_entite")

// Valid reports whether t is one of the enumerated values.
func (t TypeEntite) Valid() bool {
	for _, v := range TypesEntite {
		if t == v {
			return true
		}
	}
	return false
}

// Statut is a named state in a per-entity taxonomy (ex: "Payée" pour une cotisation).
// Uniquely identified by (type_entite, name).
type Statut struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Name       string     `gorm:"size:100;not null;uniqueIndex:idx_statut_type_name,priority:2" json:"name"`
	TypeEntite TypeEntite `gorm:"size:20;not null;default:'global';uniqueIndex:idx_statut_type_name,priority:1" json:"type_entite"`
}

func (s Statut) GetID() uint { return s.ID }
func (Statut) IsDeleted() bool { return false }
func (Statut) EntityKind() string { return KindStatut }
func (s Statut) String() string { return fmt.Sprintf("%s (%s)", s.Name, s.TypeEntite) }

// BeforeSave rejects unknown types before they reach the database.
func (s *Statut) BeforeSave(tx *gorm.DB) error {
	if !s.TypeEntite.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTypeEntite, s.TypeEntite)
	}
	return nil
}

// StatutHolder is implemented by domain entities that reference a Statut
// restricted to their own TypeEntite.
type StatutHolder interface {
	Entity
	StatutRef() (id uint, want TypeEntite)
}
