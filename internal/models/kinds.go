package models

// Entity kinds, as they appear in audit details and purge registrations.
const (
	KindUser       = "user"
	KindRole       = "role"
	KindStatut     = "statut"
	KindAuditLog   = "audit_log"
	KindMembre     = "membre"
	KindCotisation = "cotisation"
	KindPaiement   = "paiement"
	KindEvenement  = "evenement"
)
