package adapters

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

// userSQL is a relational UserStore built on GORM (PostgreSQL in production,
// SQLite in tests). Email uniqueness is enforced by a unique index; the
// connection must be opened with gorm.Config.TranslateError so that index
// violations surface as gorm.ErrDuplicatedKey.
type userSQL struct {
	db *gorm.DB
}

// Compile-time check to ensure userSQL implements UserStore.
var _ usecase.UserStore = (*userSQL)(nil)

// NewUserSQL creates a new instance of userSQL.
func NewUserSQL(db *gorm.DB) *userSQL {
	return &userSQL{db: db}
}

// Migrate creates or updates the users table.
func (r *userSQL) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&UserModel{})
}

// Ping checks that the database is reachable.
func (r *userSQL) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// FindByID retrieves a user by ID.
// It returns usecase.ErrUserNotFound if no row matches.
func (r *userSQL) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByEmail retrieves a user by email address.
// It returns usecase.ErrUserNotFound if no row matches.
func (r *userSQL) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(r.db.WithContext(ctx), "email = ?", email)
}

func (r *userSQL) findOne(tx *gorm.DB, query string, arg string) (*entity.User, error) {
	var m UserModel
	if err := tx.Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return m.ToEntity(), nil
}

// Insert adds a user row.
// It returns usecase.ErrEmailAlreadyExists if the email is taken.
func (r *userSQL) Insert(ctx context.Context, u *entity.User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	if err := r.db.WithContext(ctx).Create(UserModelFromEntity(u)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return usecase.ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Replace overwrites the row with the same ID inside a transaction.
func (r *userSQL) Replace(ctx context.Context, u *entity.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.findOne(tx, "id = ?", u.ID); err != nil {
			return err
		}
		if err := tx.Save(UserModelFromEntity(u)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return usecase.ErrEmailAlreadyExists
			}
			return fmt.Errorf("failed to replace user: %w", err)
		}
		return nil
	})
}

// Delete removes the row with the given ID and returns it.
func (r *userSQL) Delete(ctx context.Context, id string) (*entity.User, error) {
	var removed *entity.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := r.findOne(tx, "id = ?", id)
		if err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&UserModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return usecase.ErrUserNotFound
		}
		removed = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Count returns the number of rows in the users table.
func (r *userSQL) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
