package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"catalog/internal/authz"
	"catalog/internal/model"
	"catalog/internal/repository"
	"catalog/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

var validate = validator.New()

// Authorizer gates every operation: Authenticate for reads open to any
// signed-in user, Authorize for everything privileged.
type Authorizer interface {
	Authenticate(ctx context.Context, userID uint) error
	Authorize(ctx context.Context, userID uint, action authz.Action) error
	AuthorizeRoleGrant(ctx context.Context, userID uint, roleNames []string) error
}

// EventPublisher receives a notification after a write has committed.
type EventPublisher interface {
	Publish(name string, id uint, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, uint, interface{}) {}

// writeAudit appends an audit entry using the transaction carried by ctx.
func writeAudit(ctx context.Context, repo repository.AuditRepository, actor uint, action string, entityID uint, entityName string, details interface{}) error {
	payload, _ := json.Marshal(details)

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   strconv.FormatUint(uint64(entityID), 10),
		EntityName: entityName,
		Details:    string(payload),
	}
	if actor != 0 {
		entry.UserID = &actor
	}

	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// notFound maps gorm's missing-row error onto the domain error.
func notFound(err error, what string) error {
	if repository.IsNotFound(err) {
		return fmt.Errorf("%s: %w", what, apperror.ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// label turns a field key into the wording used in messages: "product_number" -> "product number".
func label(field string) string {
	if i := strings.LastIndex(field, "."); i >= 0 {
		field = field[:i]
	}
	return strings.ReplaceAll(field, "_", " ")
}

func msgRequired(field string) string {
	return fmt.Sprintf("The %s field is required.", label(field))
}

func msgMax(field string, n int) string {
	return fmt.Sprintf("The %s must not be greater than %d characters.", label(field), n)
}

func msgMin(field string, n int) string {
	return fmt.Sprintf("The %s must be at least %d.", label(field), n)
}

func msgTaken(field string) string {
	return fmt.Sprintf("The %s has already been taken.", label(field))
}

func msgInvalid(field string) string {
	return fmt.Sprintf("The selected %s is invalid.", label(field))
}
