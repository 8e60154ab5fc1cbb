package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-asso/internal/models"
	"github.com/diewo77/go-asso/internal/store"
	"github.com/diewo77/go-asso/internal/validation"
)

// Statut names applied when an input leaves StatutID unset.
var initialStatut = map[models.TypeEntite]string{
	models.TypeMembre:     "En attente",
	models.TypeCotisation: "Non payé",
	models.TypePaiement:   "En attente",
	models.TypeEvenement:  "Planifié",
}

const (
	statutPaiementValide = "Validé"
	statutCotisationPaye = "Payée"
)

// AssociationService records members, dues, payments and events. Every write
// goes through the store lifecycle so it is audited and soft-deletable.
type AssociationService struct {
	lc *store.Lifecycle
}

func NewAssociationService(lc *store.Lifecycle) *AssociationService {
	return &AssociationService{lc: lc}
}

type MembreInput struct {
	UserID       *uint
	Nom          string
	Prenom       string
	Email        string
	Telephone    string
	DateAdhesion time.Time // zero means today
	StatutID     uint      // zero means "En attente"
}

type CotisationInput struct {
	MembreID     uint
	Annee        int
	Montant      float64
	DateEcheance time.Time
	StatutID     uint
}

type PaiementInput struct {
	CotisationID uint
	Montant      float64
	Mode         string
	Reference    string
	Date         time.Time
	StatutID     uint
}

type EvenementInput struct {
	Titre       string
	Description string
	Lieu        string
	DateDebut   time.Time
	DateFin     *time.Time
	StatutID    uint
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvariantViolation, fmt.Sprintf(format, args...))
}

func check(what string, v validation.Violations) error {
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", store.ErrInvariantViolation, what, err)
	}
	return nil
}

// statutFor checks id against t, or resolves the initial statut of t when id is zero.
func statutFor(ctx context.Context, statuts *store.StatutStore, id uint, t models.TypeEntite) (uint, error) {
	if id != 0 {
		st, err := statuts.RequireType(ctx, id, t)
		if err != nil {
			return 0, err
		}
		return st.ID, nil
	}
	st, err := statuts.Find(ctx, t, initialStatut[t])
	if err != nil {
		return 0, err
	}
	if st == nil {
		return 0, invalid("no %q statut for %s, seed the database", initialStatut[t], t)
	}
	return st.ID, nil
}

func (s *AssociationService) CreateMembre(ctx context.Context, in MembreInput) (*models.Membre, error) {
	nom := strings.TrimSpace(in.Nom)
	v := validation.Violations{}
	validation.Required("nom", nom, v)
	if err := check("membre", v); err != nil {
		return nil, err
	}
	m := &models.Membre{
		UserID:       in.UserID,
		Nom:          nom,
		Prenom:       strings.TrimSpace(in.Prenom),
		Email:        store.NormalizeEmail(in.Email),
		Telephone:    strings.TrimSpace(in.Telephone),
		DateAdhesion: in.DateAdhesion,
	}
	err := s.lc.Transaction(ctx, func(tx *store.Lifecycle) error {
		id, err := statutFor(ctx, store.NewStatutStore(tx), in.StatutID, models.TypeMembre)
		if err != nil {
			return err
		}
		m.StatutID = id
		if m.DateAdhesion.IsZero() {
			m.DateAdhesion = tx.Now()
		}
		if m.UserID != nil {
			var n int64
			if err := tx.DB(ctx).Model(&models.User{}).Where("id = ?", *m.UserID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return invalid("user %d does not exist", *m.UserID)
			}
		}
		return tx.Save(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *AssociationService) EnregistrerCotisation(ctx context.Context, in CotisationInput) (*models.Cotisation, error) {
	v := validation.Violations{}
	validation.NonNegativeFloat("montant", in.Montant, v)
	validation.PositiveInt("annee", in.Annee, v)
	if err := check("cotisation", v); err != nil {
		return nil, err
	}
	c := &models.Cotisation{MembreID: in.MembreID, Annee: in.Annee, Montant: in.Montant, DateEcheance: in.DateEcheance}
	err := s.lc.Transaction(ctx, func(tx *store.Lifecycle) error {
		var m models.Membre
		if err := live(ctx, tx, &m, in.MembreID, "membre"); err != nil {
			return err
		}
		id, err := statutFor(ctx, store.NewStatutStore(tx), in.StatutID, models.TypeCotisation)
		if err != nil {
			return err
		}
		c.StatutID = id
		if c.DateEcheance.IsZero() {
			c.DateEcheance = time.Date(in.Annee, time.December, 31, 0, 0, 0, 0, time.UTC)
		}
		return tx.Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// EnregistrerPaiement records a payment. Once the validated payments cover
// the cotisation amount the cotisation moves to "Payée".
func (s *AssociationService) EnregistrerPaiement(ctx context.Context, in PaiementInput) (*models.Paiement, error) {
	v := validation.Violations{}
	validation.OneOf("mode", in.Mode, models.ValidMode, v)
	validation.PositiveFloat("montant", in.Montant, v)
	if err := check("paiement", v); err != nil {
		return nil, err
	}
	p := &models.Paiement{CotisationID: in.CotisationID, Montant: in.Montant, Mode: in.Mode, Reference: strings.TrimSpace(in.Reference), Date: in.Date}
	err := s.lc.Transaction(ctx, func(tx *store.Lifecycle) error {
		var c models.Cotisation
		if err := live(ctx, tx, &c, in.CotisationID, "cotisation"); err != nil {
			return err
		}
		statuts := store.NewStatutStore(tx)
		id, err := statutFor(ctx, statuts, in.StatutID, models.TypePaiement)
		if err != nil {
			return err
		}
		p.StatutID = id
		if p.Date.IsZero() {
			p.Date = tx.Now()
		}
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		return settle(ctx, tx, statuts, &c)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// settle marks c as paid when its validated payments reach its amount.
func settle(ctx context.Context, tx *store.Lifecycle, statuts *store.StatutStore, c *models.Cotisation) error {
	paye, err := validatedTotal(ctx, tx, c.ID)
	if err != nil {
		return err
	}
	if paye < c.Montant {
		return nil
	}
	st, err := statuts.Find(ctx, models.TypeCotisation, statutCotisationPaye)
	if err != nil || st == nil || st.ID == c.StatutID {
		return err
	}
	return tx.Update(ctx, c, map[string]any{"statut_id": st.ID})
}

func validatedTotal(ctx context.Context, lc *store.Lifecycle, cotisationID uint) (float64, error) {
	var total float64
	err := lc.DB(ctx).Model(&models.Paiement{}).
		Joins("JOIN statuts ON statuts.id = paiements.statut_id").
		Where("paiements.cotisation_id = ? AND statuts.type_entite = ? AND statuts.name = ?", cotisationID, models.TypePaiement, statutPaiementValide).
		Select("COALESCE(SUM(paiements.montant), 0)").
		Scan(&total).Error
	return total, err
}

func (s *AssociationService) CreateEvenement(ctx context.Context, in EvenementInput) (*models.Evenement, error) {
	titre := strings.TrimSpace(in.Titre)
	v := validation.Violations{}
	validation.Required("titre", titre, v)
	validation.RequiredTime("date_debut", in.DateDebut, v)
	validation.NotBefore("date_fin", in.DateFin, in.DateDebut, v)
	if err := check("evenement", v); err != nil {
		return nil, err
	}
	e := &models.Evenement{Titre: titre, Description: in.Description, Lieu: strings.TrimSpace(in.Lieu), DateDebut: in.DateDebut, DateFin: in.DateFin}
	err := s.lc.Transaction(ctx, func(tx *store.Lifecycle) error {
		id, err := statutFor(ctx, store.NewStatutStore(tx), in.StatutID, models.TypeEvenement)
		if err != nil {
			return err
		}
		e.StatutID = id
		return tx.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ChangeStatut moves e, a pointer to a stored entity, to statut id. The statut
// must belong to e's own type.
func (s *AssociationService) ChangeStatut(ctx context.Context, e models.StatutHolder, id uint) error {
	_, want := e.StatutRef()
	return s.lc.Transaction(ctx, func(tx *store.Lifecycle) error {
		if _, err := store.NewStatutStore(tx).RequireType(ctx, id, want); err != nil {
			return err
		}
		return tx.Update(ctx, e, map[string]any{"statut_id": id})
	})
}

// Solde returns the amount due, the validated amount paid and what remains.
func (s *AssociationService) Solde(ctx context.Context, cotisationID uint) (du, paye, reste float64, err error) {
	var c models.Cotisation
	if err = live(ctx, s.lc, &c, cotisationID, "cotisation"); err != nil {
		return
	}
	du = c.Montant
	if paye, err = validatedTotal(ctx, s.lc, c.ID); err != nil {
		return
	}
	reste = du - paye
	if reste < 0 {
		reste = 0
	}
	return
}

// Encaisse sums the validated payments of the cotisations of a given year.
func (s *AssociationService) Encaisse(ctx context.Context, annee int) (float64, error) {
	var total float64
	err := s.lc.DB(ctx).Model(&models.Paiement{}).
		Joins("JOIN statuts ON statuts.id = paiements.statut_id").
		Joins("JOIN cotisations ON cotisations.id = paiements.cotisation_id AND cotisations.deleted_at IS NULL").
		Where("cotisations.annee = ? AND statuts.type_entite = ? AND statuts.name = ?", annee, models.TypePaiement, statutPaiementValide).
		Select("COALESCE(SUM(paiements.montant), 0)").
		Scan(&total).Error
	return total, err
}

// CotisationsEnRetard lists unpaid cotisations whose due date has passed.
func (s *AssociationService) CotisationsEnRetard(ctx context.Context) ([]models.Cotisation, error) {
	var out []models.Cotisation
	err := s.lc.DB(ctx).
		Joins("JOIN statuts ON statuts.id = cotisations.statut_id").
		Where("cotisations.date_echeance < ? AND statuts.name NOT IN ?", s.lc.Now(), []string{statutCotisationPaye, "Annulée"}).
		Order("cotisations.date_echeance").
		Find(&out).Error
	return out, err
}

// live loads a non-deleted row into dst.
func live(ctx context.Context, lc *store.Lifecycle, dst any, id uint, what string) error {
	var n int64
	if err := lc.DB(ctx).Model(dst).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return invalid("%s %d does not exist", what, id)
	}
	return lc.DB(ctx).First(dst, id).Error
}
