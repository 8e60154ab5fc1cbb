// Package statut holds the default statut taxonomy and the rule that files a
// legacy (global) statut under the entity type it belongs to.
package statut

import (
	"strings"

	"github.com/diewo77/go-asso/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// defaults per type, in display order.
var defaults = map[models.TypeEntite][]string{
	models.TypeMembre:     {"Actif", "En attente", "Suspendu", "Désactivé", "Honoraire"},
	models.TypeCotisation: {"Non payé", "Payée", "En retard", "Annulée"},
	models.TypePaiement:   {"Validé", "En attente", "Annulé", "Rejeté"},
	models.TypeEvenement:  {"Planifié", "Ouvert", "Complet", "Annulé", "Terminé"},
}

// classificationOrder is the order in which Classify tries the types.
var classificationOrder = []models.TypeEntite{models.TypeMembre, models.TypeCotisation, models.TypePaiement}

// Defaults returns the default statut names for t (nil for global).
func Defaults(t models.TypeEntite) []string {
	return append([]string(nil), defaults[t]...)
}

// All returns every default statut, grouped by type in TypesEntite order.
func All() []models.Statut {
	var out []models.Statut
	for _, t := range models.TypesEntite {
		for _, name := range defaults[t] {
			out = append(out, models.Statut{Name: name, TypeEntite: t})
		}
	}
	return out
}

var folder = cases.Fold()

// Fold normalizes a name for comparison: NFC, case-folded, trimmed.
func Fold(s string) string {
	return folder.String(norm.NFC.String(strings.TrimSpace(s)))
}

// Classify returns the type whose default names appear in name. Types are
// tried in order membre, cotisation, paiement; no match yields global.
// "En attente" belongs to both membre and paiement, so it classifies as membre.
func Classify(name string) models.TypeEntite {
	folded := Fold(name)
	if folded == "" {
		return models.TypeGlobal
	}
	for _, t := range classificationOrder {
		for _, known := range defaults[t] {
			if strings.Contains(folded, Fold(known)) {
				return t
			}
		}
	}
	return models.TypeGlobal
}
