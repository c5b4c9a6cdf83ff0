package directory

//go:generate mockgen -source=directory.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"

	"presence.service/internal/core/model"
)

// ErrEmployeeNotFound is returned when no employee matches the key.
var ErrEmployeeNotFound = errors.New("employee not found")

// Directory is the read-only employee lookup owned by the HR system.
type Directory interface {
	// FindByIDOrEmail resolves an employee from an id or an email address.
	FindByIDOrEmail(ctx context.Context, key string) (*model.Employee, error)
	// FindByIDs returns the employees that exist among ids, keyed by id.
	FindByIDs(ctx context.Context, ids []string) (map[string]model.Employee, error)
}
