package models

// All returns the models migrated by AutoMigrate, parents first.
func All() []any {
	return []any{
		&Role{}, &User{}, &Statut{}, &AuditLog{},
		&Membre{}, &Cotisation{}, &Paiement{}, &Evenement{},
	}
}
