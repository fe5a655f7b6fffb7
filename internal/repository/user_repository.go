package repository

import (
	"context"
	"fmt"

	"storefront/internal/domain/model"
)

// ErrNotFoundとしても判定できる
var ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

// ユーザーの登録・ログインは外部。ここはJWTの照合と強制ログアウトのため
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	// +1した後のtoken_versionを返す
	BumpTokenVersion(ctx context.Context, userID int64) (int, error)
}
