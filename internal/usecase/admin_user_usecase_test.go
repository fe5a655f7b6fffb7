package usecase_test

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdminUserUsecase_ForceLogout(t *testing.T) {
	env := newTestEnv(t, "0")
	ctx := context.Background()
	users := infraRepo.NewUserGormRepository(env.db)

	u := &model.User{Email: "taro@example.com", Role: model.RoleUser, IsActive: true}
	require.NoError(t, users.Create(ctx, u))

	uc := usecase.NewAdminUserUsecase(env.tx, zap.NewNop())

	_, err := uc.ForceLogout(ctx, buyer, u.ID)
	requireKind(t, err, usecase.KindForbidden)

	_, err = uc.ForceLogout(ctx, admin, 0)
	requireKind(t, err, usecase.KindValidation)

	_, err = uc.ForceLogout(ctx, admin, 9999)
	requireKind(t, err, usecase.KindNotFound)

	res, err := uc.ForceLogout(ctx, admin, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.UserID)
	assert.Equal(t, 1, res.NewTokenVersion)

	res, err = uc.ForceLogout(ctx, admin, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewTokenVersion)

	got, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TokenVersion)

	var logs []model.AuditLog
	require.NoError(t, env.db.Where("action = ?", model.AuditActionForceLogout).Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, `{"token_version":1}`, logs[1].BeforeJSON)
	assert.Equal(t, `{"token_version":2}`, logs[1].AfterJSON)
}
