package model

import (
	"encoding/json"
	"strings"
	"time"
)

type AuditAction string

const (
	AuditActionUpdateStock       AuditAction = "UPDATE_STOCK"
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionRecordPayment     AuditAction = "RECORD_PAYMENT"
	AuditActionDeleteOrder       AuditAction = "DELETE_ORDER"
	AuditActionForceLogout       AuditAction = "FORCE_LOGOUT"
)

var auditActions = []AuditAction{
	AuditActionUpdateStock,
	AuditActionUpdateOrderStatus,
	AuditActionRecordPayment,
	AuditActionDeleteOrder,
	AuditActionForceLogout,
}

func ParseAuditAction(s string) (AuditAction, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, a := range auditActions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

type AuditResourceType string

const (
	AuditResourceProduct     AuditResourceType = "product"
	AuditResourceSizeVariant AuditResourceType = "size_variant"
	AuditResourceOrder       AuditResourceType = "order"
	AuditResourceUser        AuditResourceType = "user"
)

func ParseAuditResourceType(s string) (AuditResourceType, bool) {
	switch t := AuditResourceType(strings.ToLower(strings.TrimSpace(s))); t {
	case AuditResourceProduct, AuditResourceSizeVariant, AuditResourceOrder, AuditResourceUser:
		return t, true
	}
	return "", false
}

// AuditState は変更前後の値。JSONのキーはソートされる
type AuditState map[string]any

func (s AuditState) JSON() string {
	if len(s) == 0 {
		return "{}"
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// 管理者操作の記録。注文・在庫を変えたのと同じtxで書く
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index:idx_audit_logs_resource" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index:idx_audit_logs_resource" json:"resource_id"`
	BeforeJSON   string            `gorm:"type:text" json:"before_json"`
	AfterJSON    string            `gorm:"type:text" json:"after_json"`
	CreatedAt    time.Time         `gorm:"not null;index;autoCreateTime" json:"created_at"`
}

func NewAuditLog(actorUserID int64, action AuditAction, resource AuditResourceType, resourceID int64, before, after AuditState) AuditLog {
	return AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   before.JSON(),
		AfterJSON:    after.JSON(),
	}
}
