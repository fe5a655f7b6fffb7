package usecase

import (
	"context"
	"strconv"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type AuditLogUsecase struct {
	tx repo.TransactionManager
}

func NewAuditLogUsecase(tx repo.TransactionManager) *AuditLogUsecase {
	return &AuditLogUsecase{tx: tx}
}

// クエリ文字列そのまま。空なら条件なし
type AuditLogQuery struct {
	ActorUserID  string
	Action       string
	ResourceType string
	ResourceID   string
	From         string
	To           string
	Page         int
	Limit        int
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (u *AuditLogUsecase) List(ctx context.Context, p model.Principal, q AuditLogQuery) (AuditLogListOutput, error) {
	if p.UserID <= 0 {
		return AuditLogListOutput{}, NewUnauthorizedError()
	}
	if !p.IsAdmin() {
		return AuditLogListOutput{}, NewForbiddenError("admin only")
	}
	f, err := q.toFilter()
	if err != nil {
		return AuditLogListOutput{}, err
	}

	out := AuditLogListOutput{Items: []model.AuditLog{}, Page: f.Page, Limit: f.Limit}
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, total, err := r.AuditLogs().List(ctx, f)
		if err != nil {
			return NewInternalError(err)
		}
		out.Items = append(out.Items, logs...)
		out.Total = total
		return nil
	})
	if err != nil {
		return AuditLogListOutput{}, err
	}
	return out, nil
}

func (q AuditLogQuery) toFilter() (repo.AuditLogFilter, error) {
	f := repo.AuditLogFilter{Page: q.Page, Limit: q.Limit}
	if f.Page < 1 {
		return f, NewValidationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > 200 {
		return f, NewValidationError("invalid limit")
	}

	var err error
	if f.ActorUserID, err = parseOptionalID(q.ActorUserID, "actor_user_id"); err != nil {
		return f, err
	}
	if f.ResourceID, err = parseOptionalID(q.ResourceID, "resource_id"); err != nil {
		return f, err
	}
	if s := strings.TrimSpace(q.Action); s != "" {
		a, ok := model.ParseAuditAction(s)
		if !ok {
			return f, NewValidationError("invalid action")
		}
		f.Action = &a
	}
	if s := strings.TrimSpace(q.ResourceType); s != "" {
		t, ok := model.ParseAuditResourceType(s)
		if !ok {
			return f, NewValidationError("invalid resource_type")
		}
		f.ResourceType = &t
	}

	if f.From, err = ParseDateTimeParam(q.From); err != nil {
		return f, err
	}
	if f.To, err = ParseDateTimeParam(q.To); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return f, NewValidationError("from must be before to")
	}
	return f, nil
}

func parseOptionalID(s, field string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, NewValidationError("invalid %s", field)
	}
	return &id, nil
}
