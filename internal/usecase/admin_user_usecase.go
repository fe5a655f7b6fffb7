package usecase

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type ForceLogoutResponse struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

type AdminUserUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewAdminUserUsecase(tx repo.TransactionManager, log *zap.Logger) *AdminUserUsecase {
	return &AdminUserUsecase{tx: tx, log: log.Named("admin_user")}
}

// ForceLogout はtoken_versionを上げて、発行済みのJWTを全て無効にする。
func (u *AdminUserUsecase) ForceLogout(ctx context.Context, p model.Principal, targetUserID int64) (ForceLogoutResponse, error) {
	if !p.IsAdmin() {
		return ForceLogoutResponse{}, NewForbiddenError("admin only")
	}
	if targetUserID <= 0 {
		return ForceLogoutResponse{}, NewValidationError("invalid user id")
	}

	var res ForceLogoutResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		version, err := r.Users().BumpTokenVersion(ctx, targetUserID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("user")
		}
		if err != nil {
			return NewInternalError(err)
		}

		entry := model.NewAuditLog(p.UserID, model.AuditActionForceLogout, model.AuditResourceUser, targetUserID,
			model.AuditState{"token_version": version - 1},
			model.AuditState{"token_version": version},
		)
		if err := r.AuditLogs().Create(ctx, entry); err != nil {
			return NewInternalError(err)
		}

		res = ForceLogoutResponse{UserID: targetUserID, NewTokenVersion: version}
		return nil
	})
	if err != nil {
		return ForceLogoutResponse{}, err
	}

	u.log.Info("user forced logout", zap.Int64("user_id", targetUserID), zap.Int64("actor_user_id", p.UserID))
	return res, nil
}
