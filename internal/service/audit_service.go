package service

import (
	"context"
	"fmt"
	"strconv"

	"catalog/internal/authz"
	"catalog/internal/repository"
)

type AuditLogResponse struct {
	ID         uint   `json:"id"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, actor uint, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo  repository.AuditRepository
	authz Authorizer
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository, az Authorizer) AuditService {
	return &auditService{repo: repo, authz: az}
}

// GetAuditLogs returns one page of the trail, newest first, with the acting user joined in.
func (s *auditService) GetAuditLogs(ctx context.Context, actor uint, page, limit int) ([]AuditLogResponse, int64, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionViewAudit); err != nil {
		return nil, 0, err
	}

	logs, total, err := s.repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userName := "System"
		userID := ""
		if l.User != nil {
			userName = l.User.Name
		}
		if l.UserID != nil {
			userID = strconv.FormatUint(uint64(*l.UserID), 10)
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID,
			UserID:     userID,
			UserName:   userName,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
