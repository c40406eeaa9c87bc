// Package dto はaccountフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

// LoginReq は/api/loginエンドポイントのリクエストボディを表します。
type LoginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthenticatedRes はログイン成功時のレスポンスです。トークン自体はCookieで返します。
type AuthenticatedRes struct {
	ID string `json:"id"`
}
