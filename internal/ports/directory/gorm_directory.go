package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"presence.service/internal/core/model"
)

// employeeRow maps the HR system's employees table.
type employeeRow struct {
	ID           string         `gorm:"column:id;primaryKey"`
	Email        string         `gorm:"column:email"`
	FullName     string         `gorm:"column:full_name"`
	Role         string         `gorm:"column:role"`
	DepartmentID *string        `gorm:"column:department_id"`
	Department   *departmentRow `gorm:"foreignKey:DepartmentID;references:ID"`
}

func (employeeRow) TableName() string {
	return "employees"
}

type departmentRow struct {
	ID   string `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name"`
}

func (departmentRow) TableName() string {
	return "departments"
}

// GormDirectory implements Directory over the HR schema.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a new GORM employee directory
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// FindByIDOrEmail matches the key against the id first, then the email
// case-insensitively.
func (d *GormDirectory) FindByIDOrEmail(ctx context.Context, key string) (*model.Employee, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmployeeNotFound
	}

	var row employeeRow
	err := d.db.WithContext(ctx).
		Preload("Department").
		Where("id::text = ? OR lower(email) = lower(?)", key, key).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN id::text = ? THEN 0 ELSE 1 END",
			Vars:               []interface{}{key},
			WithoutParentheses: true,
		}}).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find employee: %w", err)
	}

	emp := row.toModel()
	return &emp, nil
}

// FindByIDs loads employees with their departments in one query.
func (d *GormDirectory) FindByIDs(ctx context.Context, ids []string) (map[string]model.Employee, error) {
	out := make(map[string]model.Employee, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []employeeRow
	if err := d.db.WithContext(ctx).Preload("Department").Where("id::text IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find employees: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.toModel()
	}
	return out, nil
}

// Convert GORM model to domain entity
func (r employeeRow) toModel() model.Employee {
	emp := model.Employee{
		ID:       r.ID,
		Email:    r.Email,
		FullName: r.FullName,
		Role:     model.Role(strings.ToLower(r.Role)),
	}
	if r.DepartmentID != nil {
		emp.DepartmentID = *r.DepartmentID
	}
	if r.Department != nil {
		emp.DepartmentName = r.Department.Name
	}
	return emp
}
