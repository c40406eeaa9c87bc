// Package usecase はaccountフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"account_backend/internal/feature/account/domain"
	"account_backend/internal/feature/account/domain/entity"
)

// UserStore はユーザーレコードの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
// 実装は複数リクエストから同時に呼ばれることを前提とします。
type UserStore interface {
	// FindByID はIDに一致するユーザーを取得します。存在しない場合はErrUserNotFoundを返します。
	FindByID(ctx context.Context, id string) (*entity.User, error)

	// FindByEmail はメールアドレスに一致するユーザーを取得します。存在しない場合はErrUserNotFoundを返します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Insert は新しいユーザーを保存します。メールアドレスが重複する場合はErrEmailAlreadyExistsを返します。
	Insert(ctx context.Context, user *entity.User) error

	// Replace は同じIDのレコードを置き換えます。
	// 存在しない場合はErrUserNotFound、メールアドレスが他のレコードと重複する場合はErrEmailAlreadyExistsを返します。
	Replace(ctx context.Context, user *entity.User) error

	// Delete はIDに一致するユーザーを削除し、削除したレコードを返します。
	Delete(ctx context.Context, id string) (*entity.User, error)

	// Count は保存されているユーザー数を返します。
	Count(ctx context.Context) (int64, error)
}

// PasswordHasher はソルト付きパスワードハッシュの生成と検証を定義します。
type PasswordHasher interface {
	Hash(password, salt string) (string, error)
	Verify(password, encodedHash string) bool
}

// TokenSigner はセッショントークンの署名を定義します。
type TokenSigner interface {
	Sign(userID string) (string, error)
}

// accountUsecase はアカウント管理のビジネスロジックを実装します。
type accountUsecase struct {
	users   UserStore
	hasher  PasswordHasher
	signer  TokenSigner
	newSalt func() (string, error)
	now     func() time.Time
}

// NewAccountUsecase はaccountUsecaseの新しいインスタンスを生成します。
func NewAccountUsecase(users UserStore, hasher PasswordHasher, signer TokenSigner, newSalt func() (string, error)) *accountUsecase {
	return &accountUsecase{
		users:   users,
		hasher:  hasher,
		signer:  signer,
		newSalt: newSalt,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// internal はドメインで解釈できないエラーをErrInternalでラップします。
func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrInternal, op, err)
}

// Register はソルトを生成してパスワードをハッシュ化し、新規ユーザーを登録します。
func (u *accountUsecase) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	salt, err := u.newSalt()
	if err != nil {
		return nil, internal("generate salt", err)
	}
	hash, err := u.hasher.Hash(password, salt)
	if err != nil {
		return nil, internal("hash password", err)
	}

	now := u.now()
	user := &entity.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.users.Insert(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, domain.ErrEmailInUse
		}
		return nil, internal("insert user", err)
	}
	slog.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login はメールアドレスとパスワードを検証し、成功時にユーザーIDとセッショントークンを返します。
func (u *accountUsecase) Login(ctx context.Context, email, password string) (string, string, error) {
	user, err := u.find(ctx, u.users.FindByEmail, email)
	if err != nil {
		return "", "", err
	}
	if !u.hasher.Verify(password, user.PasswordHash) {
		return "", "", domain.ErrInvalidPassword
	}

	token, err := u.signer.Sign(user.ID)
	if err != nil {
		return "", "", internal("sign token", err)
	}
	return user.ID, token, nil
}

// Count は登録済みユーザー数を返します。
func (u *accountUsecase) Count(ctx context.Context) (int64, error) {
	n, err := u.users.Count(ctx)
	if err != nil {
		return 0, internal("count users", err)
	}
	return n, nil
}

// GetByID はIDでユーザーを取得します。
func (u *accountUsecase) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return u.find(ctx, u.users.FindByID, id)
}

// GetByEmail はメールアドレスでユーザーを取得します。
func (u *accountUsecase) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return u.find(ctx, u.users.FindByEmail, email)
}

// UpdateProfile は現在のパスワードを検証した上で名前とメールアドレスを更新します。
// メールアドレスの重複は書き込み前に確認しますが、最終的な一意性はストアが保証します。
func (u *accountUsecase) UpdateProfile(ctx context.Context, id, name, email, currentPassword string) (*entity.User, error) {
	user, err := u.authorize(ctx, id, currentPassword)
	if err != nil {
		return nil, err
	}

	owner, err := u.users.FindByEmail(ctx, email)
	switch {
	case err == nil && owner.ID != user.ID:
		return nil, domain.ErrEmailInUse
	case err != nil && !errors.Is(err, ErrUserNotFound):
		return nil, internal("check email", err)
	}

	user.UpdateProfile(name, email, u.now())
	if err := u.replace(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword は現在のパスワードを検証し、既存のソルトで新しいパスワードを再ハッシュします。
func (u *accountUsecase) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	if newPassword == "" {
		return domain.ErrPasswordNotProvided
	}
	user, err := u.authorize(ctx, id, currentPassword)
	if err != nil {
		return err
	}

	hash, err := u.hasher.Hash(newPassword, user.Salt)
	if err != nil {
		return internal("hash password", err)
	}
	user.UpdatePasswordHash(hash, u.now())
	if err := u.replace(ctx, user); err != nil {
		return err
	}
	slog.Info("password changed", "user_id", user.ID)
	return nil
}

// Delete は現在のパスワードを検証した上でユーザーを削除し、削除したレコードを返します。
func (u *accountUsecase) Delete(ctx context.Context, id, currentPassword string) (*entity.User, error) {
	if _, err := u.authorize(ctx, id, currentPassword); err != nil {
		return nil, err
	}

	deleted, err := u.users.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, internal("delete user", err)
	}
	slog.Info("user deleted", "user_id", deleted.ID)
	return deleted, nil
}

// authorize はIDでユーザーを取得し、現在のパスワードを検証します。
// 存在しない場合はErrUserNotFound、パスワード不一致の場合はErrUnauthorizedを返します。
func (u *accountUsecase) authorize(ctx context.Context, id, currentPassword string) (*entity.User, error) {
	user, err := u.find(ctx, u.users.FindByID, id)
	if err != nil {
		return nil, err
	}
	if !u.hasher.Verify(currentPassword, user.PasswordHash) {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

func (u *accountUsecase) find(ctx context.Context, lookup func(context.Context, string) (*entity.User, error), key string) (*entity.User, error) {
	user, err := lookup(ctx, key)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, internal("find user", err)
	}
	return user, nil
}

func (u *accountUsecase) replace(ctx context.Context, user *entity.User) error {
	if err := u.users.Replace(ctx, user); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return domain.ErrUserNotFound
		case errors.Is(err, ErrEmailAlreadyExists):
			return domain.ErrEmailInUse
		}
		return internal("replace user", err)
	}
	return nil
}
