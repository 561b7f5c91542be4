package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a Postgres-backed project repository.
func NewProjectRepository(db *gorm.DB) interfaces.ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Upsert(ctx context.Context, project *types.Project) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "status", "updated_at"}),
	}).Create(project).Error
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to upsert project")
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*types.Project, error) {
	var project types.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("project %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to get project")
	}
	return &project, nil
}

func (r *projectRepository) GetByName(ctx context.Context, name string) (*types.Project, error) {
	var project types.Project
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("project %q not found", name)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to get project by name")
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context) ([]*types.Project, error) {
	var projects []*types.Project
	if err := r.db.WithContext(ctx).Order("name asc").Find(&projects).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list projects")
	}
	return projects, nil
}
