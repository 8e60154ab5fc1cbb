package models

import "time"

// Membre is an adherent of the association. A member may or may not have a login (UserID).
type Membre struct {
	Base
	UserID       *uint     `gorm:"index" json:"user_id,omitempty"`
	User         *User     `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	Nom          string    `gorm:"size:150;not null;index" json:"nom"`
	Prenom       string    `gorm:"size:150;index" json:"prenom"`
	Email        string    `gorm:"size:254" json:"email,omitempty"`
	Telephone    string    `gorm:"size:30" json:"telephone,omitempty"`
	DateAdhesion time.Time `gorm:"not null" json:"date_adhesion"`

	StatutID uint    `gorm:"index;not null" json:"statut_id"` // statut de type membre
	Statut   *Statut `gorm:"foreignKey:StatutID" json:"statut,omitempty"`

	Cotisations []Cotisation `gorm:"foreignKey:MembreID" json:"cotisations,omitempty"`
}

func (Membre) EntityKind() string { return KindMembre }

func (m Membre) StatutRef() (uint, TypeEntite) { return m.StatutID, TypeMembre }

// NomComplet returns "Prénom Nom".
func (m Membre) NomComplet() string {
	if m.Prenom == "" {
		return m.Nom
	}
	return m.Prenom + " " + m.Nom
}
