package model

import "time"

// 保存済みの配送先。住所部分はAddressSnapshotと同じ列を持つ
type Address struct {
	ID              int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64  `gorm:"not null;index" json:"user_id"`
	Label           string `gorm:"type:varchar(50)" json:"label"`
	AddressSnapshot `gorm:"embedded"`
	// ユーザーごとに高々1件
	IsDefault bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (a Address) OwnedBy(userID int64) bool {
	return userID > 0 && a.UserID == userID
}

// 注文に焼き込む値
func (a Address) Snapshot() AddressSnapshot {
	return a.AddressSnapshot
}
