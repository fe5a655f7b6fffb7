package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type UserGormRepository struct {
	db *gorm.DB
}

func NewUserGormRepository(db *gorm.DB) *UserGormRepository {
	return &UserGormRepository{db: db}
}

func (r *UserGormRepository) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserGormRepository) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Take(&u, userID).Error; err != nil {
		if isNotFound(err) {
			return nil, repo.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// txの中で呼ぶと、読み直した値は他のbumpと混ざらない
func (r *UserGormRepository) BumpTokenVersion(ctx context.Context, userID int64) (int, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, repo.ErrUserNotFound
	}

	var u model.User
	if err := db.Select("token_version").Take(&u, userID).Error; err != nil {
		return 0, err
	}
	return u.TokenVersion, nil
}
