// Package handler はaccountフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"account_backend/internal/feature/account/domain"
	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/transport/http/dto"
	jwtmw "account_backend/internal/platform/jwt"
)

// msgInternal は解釈できないエラーに対する応答メッセージです。
const msgInternal = "Internal server error"

// AccountUsecase はアカウント操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AccountUsecase interface {
	Register(ctx context.Context, name, email, password string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (id string, token string, err error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateProfile(ctx context.Context, id, name, email, currentPassword string) (*entity.User, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
	Delete(ctx context.Context, id, currentPassword string) (*entity.User, error)
}

// CookieConfig はセッションCookieの属性です。
type CookieConfig struct {
	Secure bool
	// MaxAge はトークンの有効期間に合わせます。
	MaxAge time.Duration
}

// AccountHandler は/api/loginと/api/usersのHTTPリクエストを処理します。
type AccountHandler struct {
	accounts AccountUsecase
	cookie   CookieConfig
}

// NewAccountHandler はAccountHandlerの新しいインスタンスを生成します。
func NewAccountHandler(accounts AccountUsecase, cookie CookieConfig) *AccountHandler {
	return &AccountHandler{accounts: accounts, cookie: cookie}
}

// Login はメールアドレスとパスワードで認証し、セッショントークンをCookie "t" に設定します。
// レスポンスボディはユーザーIDのみです。
func (h *AccountHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if !bindJSON(c, &req) {
		return
	}

	id, token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// トークンやパスワードはログに出さない
		slog.Warn("login failed", "error", err, "email", req.Email, "remote_addr", c.ClientIP())
		respondError(c, err, fmt.Sprintf("user %s not found", req.Email))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(jwtmw.CookieName, token, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)

	slog.Info("user login successful", "user_id", id, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.AuthenticatedRes{ID: id})
}

// List は登録済みユーザー数を [count] の形式で返します。
func (h *AccountHandler) List(c *gin.Context) {
	n, err := h.accounts.Count(c.Request.Context())
	if err != nil {
		slog.Error("failed to count users", "error", err)
		c.JSON(http.StatusInternalServerError, msgInternal)
		return
	}
	c.JSON(http.StatusOK, []int64{n})
}

// Create は新規ユーザーを登録し、メールアドレスを含むプロジェクションを返します。
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.NewUserReq
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		slog.Warn("user registration failed", "error", err, "email", req.Email, "remote_addr", c.ClientIP())
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// Get は /api/users/:id を処理します。
// キーがUUIDとして解釈できればIDで検索してメールアドレスを伏せ、
// それ以外はメールアドレスで検索してメールアドレスを含めて返します。
func (h *AccountHandler) Get(c *gin.Context) {
	key := c.Param("id")

	if parsed, err := uuid.Parse(key); err == nil {
		id := parsed.String()
		user, err := h.accounts.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, err, fmt.Sprintf("id %s not found", id))
			return
		}
		c.JSON(http.StatusOK, user.PublicWithoutEmail())
		return
	}

	user, err := h.accounts.GetByEmail(c.Request.Context(), key)
	if err != nil {
		respondError(c, err, fmt.Sprintf("user %s not found", key))
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// Update は現在のパスワードを検証した上で名前とメールアドレスを更新します。
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateUserReq
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), id, req.Name, req.Email, req.Password)
	if err != nil {
		slog.Warn("profile update failed", "error", err, "user_id", id, "principal", principal(c))
		respondError(c, err, fmt.Sprintf("id %s not found", id))
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// ChangePassword は現在のパスワードを検証した上でパスワードを変更します。
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.PasswordReq
	if !bindJSON(c, &req) {
		return
	}

	newPassword := ""
	if req.NewPassword != nil {
		newPassword = *req.NewPassword
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), id, req.Password, newPassword); err != nil {
		slog.Warn("password change failed", "error", err, "user_id", id, "principal", principal(c))
		respondError(c, err, fmt.Sprintf("id %s not found", id))
		return
	}
	c.JSON(http.StatusOK, "Password updated")
}

// Delete は現在のパスワードを検証した上でユーザーを削除し、削除したプロジェクションを返します。
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.PasswordReq
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Delete(c.Request.Context(), id, req.Password)
	if err != nil {
		slog.Warn("user deletion failed", "error", err, "user_id", id, "principal", principal(c))
		respondError(c, err, fmt.Sprintf("id %s not found", id))
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// bindJSON はリクエストボディをバインドし、失敗時は400を返します。
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		slog.Warn("request validation failed", "error", err, "path", c.FullPath(), "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// pathID は :id をUUIDとして解釈し、正規形で返します。
// 解釈できない場合はルートが存在しないものとして404を返します。
func pathID(c *gin.Context) (string, bool) {
	parsed, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, "not found")
		return "", false
	}
	return parsed.String(), true
}

func principal(c *gin.Context) string {
	id, _ := jwtmw.Principal(c)
	return id
}

// respondError はドメインエラーをレスポンスメッセージに変換します。
// notFound は対象が存在しない場合のメッセージです。
func respondError(c *gin.Context, err error, notFound string) {
	var msg string
	switch {
	case errors.Is(err, domain.ErrUserNotFound) && notFound != "":
		msg = notFound
	case errors.Is(err, domain.ErrEmailInUse):
		msg = "email already in use"
	case errors.Is(err, domain.ErrUnauthorized):
		msg = "user not authenticated"
	case errors.Is(err, domain.ErrInvalidPassword):
		msg = "Invalid password"
	case errors.Is(err, domain.ErrPasswordNotProvided):
		msg = "Password not provided"
	default:
		slog.Error("account operation failed", "error", err, "path", c.FullPath())
		msg = msgInternal
	}
	c.JSON(http.StatusInternalServerError, msg)
}
