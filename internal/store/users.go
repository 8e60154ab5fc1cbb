package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-asso/internal/models"
	"github.com/diewo77/go-asso/internal/password"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserInput holds the optional attributes of a new account. Nil flags keep
// their defaults (inactive, not staff, not superuser).
type UserInput struct {
	Username    string
	FirstName   string
	LastName    string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
	RoleID      *uint
}

// UserStore manages accounts: creation, activation, lookups and soft delete.
type UserStore struct {
	lc     *Lifecycle
	roles  *RoleStore
	policy *password.Policy
	cost   int
}

// NewUserStore wires the store. A zero cost means bcrypt.DefaultCost.
func NewUserStore(lc *Lifecycle, roles *RoleStore, policy *password.Policy, cost int) *UserStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if policy == nil {
		policy = password.NewPolicy(password.DefaultMinLength)
	}
	return &UserStore{lc: lc, roles: roles, policy: policy, cost: cost}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Query starts a facet chain over users.
func (s *UserStore) Query() *UserQuery { return newUserQuery(s.lc.db, s.lc.clock) }

// CreateUser registers a new account. Unless the caller pre-sets IsActive the
// account is inactive and carries an activation key.
func (s *UserStore) CreateUser(ctx context.Context, email, plain string, in UserInput) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	var taken int64
	if err := s.lc.DB(ctx).Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
		return nil, wrap("create user", err)
	}
	if taken > 0 {
		return nil, ErrDuplicateEmail
	}
	if err := s.policy.Validate(plain, &password.UserAttributes{
		Username: in.Username, FirstName: in.FirstName, LastName: in.LastName, Email: email,
	}); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		RoleID:       in.RoleID,
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsStaff != nil {
		u.IsStaff = *in.IsStaff
	}
	if in.IsSuperuser != nil {
		u.IsSuperuser = *in.IsSuperuser
	}
	if !u.IsActive {
		key := uuid.NewString()
		u.ActivationKey = &key
	}
	if u.RoleID == nil && s.roles != nil {
		def, err := s.roles.Default(ctx)
		if err != nil {
			return nil, err
		}
		if def != nil {
			u.RoleID = &def.ID
		}
	}

	if err := s.lc.Save(ctx, u); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// CreateSuperuser creates an active staff superuser. Explicitly passing false
// for any of those flags is an ErrInvariantViolation.
func (s *UserStore) CreateSuperuser(ctx context.Context, email, plain string, in UserInput) (*models.User, error) {
	for name, flag := range map[string]*bool{"is_active": in.IsActive, "is_staff": in.IsStaff, "is_superuser": in.IsSuperuser} {
		if flag != nil && !*flag {
			return nil, fmt.Errorf("%w: superuser must have %s=true", ErrInvariantViolation, name)
		}
	}
	yes := true
	in.IsActive, in.IsStaff, in.IsSuperuser = &yes, &yes, &yes
	return s.CreateUser(ctx, email, plain, in)
}

// Get returns a non-deleted user by id, nil when absent.
func (s *UserStore) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.first(ctx, "get user", s.lc.DB(ctx).Where("id = ?", id))
}

// ByEmail finds a non-deleted user by normalized email, nil when absent.
func (s *UserStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "user by email", s.lc.DB(ctx).Where("email = ?", NormalizeEmail(email)))
}

// ByActivationKey finds a pending (inactive, non-deleted) account by key.
func (s *UserStore) ByActivationKey(ctx context.Context, key string) (*models.User, error) {
	if key == "" {
		return nil, nil
	}
	return s.first(ctx, "user by activation key",
		s.lc.DB(ctx).Where("activation_key = ? AND is_active = ?", key, false))
}

func (s *UserStore) first(ctx context.Context, op string, db *gorm.DB) (*models.User, error) {
	var u models.User
	err := db.First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return &u, nil
}

// Activate consumes an activation key: the account becomes active and the key
// is cleared. An unknown key returns (nil, nil). When two callers race on the
// same key only one wins; the other gets ErrConcurrencyConflict.
func (s *UserStore) Activate(ctx context.Context, key string) (*models.User, error) {
	var out *models.User
	err := s.lc.Transaction(ctx, func(tx *Lifecycle) error {
		txs := &UserStore{lc: tx, roles: s.roles, policy: s.policy, cost: s.cost}
		u, err := txs.ByActivationKey(ctx, key)
		if err != nil || u == nil {
			return err
		}
		before := *u
		res := tx.db.Model(&models.User{}).
			Where("id = ? AND activation_key = ? AND is_active = ?", u.ID, key, false).
			Updates(map[string]any{"is_active": true, "activation_key": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrencyConflict
		}
		if err := tx.db.First(u, u.ID).Error; err != nil {
			return err
		}
		changes, err := tx.diff(ctx, &before, u)
		if err != nil {
			return err
		}
		if err := tx.emit(ctx, models.ActionUpdated, u, changes); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, wrap("activate user", err)
	}
	return out, nil
}

// TouchLogin stamps last_login with the current time.
func (s *UserStore) TouchLogin(ctx context.Context, id uint) error {
	u, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	return s.lc.Update(ctx, u, map[string]any{"last_login": s.lc.Now()})
}

// SetPassword validates and stores a new password.
func (s *UserStore) SetPassword(ctx context.Context, id uint, plain string) error {
	u, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Validate(plain, &password.UserAttributes{
		Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
	}); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.lc.Update(ctx, u, map[string]any{"password_hash": string(hash)})
}

// CheckPassword reports whether plain matches the stored hash.
func (s *UserStore) CheckPassword(u *models.User, plain string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// Save persists changes to an existing account.
func (s *UserStore) Save(ctx context.Context, u *models.User) error {
	u.Email = NormalizeEmail(u.Email)
	if err := s.lc.Save(ctx, u); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// SoftDelete hides the account from every default query. It stays in the
// table (and keeps its email) until purged.
func (s *UserStore) SoftDelete(ctx context.Context, id uint) error {
	var u models.User
	err := s.lc.DB(ctx).Unscoped().First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return wrap("delete user", err)
	}
	return s.lc.Delete(ctx, &u, false)
}

// Restore brings a soft-deleted account back.
func (s *UserStore) Restore(ctx context.Context, id uint) (*models.User, error) {
	u := &models.User{ID: id}
	if err := s.lc.Restore(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) mustGet(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}
