package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/types"
)

// UserRepo is an in-memory user store.
type UserRepo struct {
	mu    sync.Mutex
	items map[string]*types.User
}

// NewUserRepo creates an empty user fake.
func NewUserRepo() *UserRepo {
	return &UserRepo{items: make(map[string]*types.User)}
}

func (r *UserRepo) Upsert(_ context.Context, user *types.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[user.ID]; ok {
		existing.Name = user.Name
		return nil
	}
	clone := *user
	r.items[user.ID] = &clone
	return nil
}

func (r *UserRepo) Get(_ context.Context, id string) (*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.items[id]
	if !ok {
		return nil, errors.NewNotFound("user %s not found", id)
	}
	clone := *user
	return &clone, nil
}

// ProjectRepo is an in-memory project store.
type ProjectRepo struct {
	mu    sync.Mutex
	items map[string]*types.Project
}

// NewProjectRepo creates an empty project fake.
func NewProjectRepo() *ProjectRepo {
	return &ProjectRepo{items: make(map[string]*types.Project)}
}

func (r *ProjectRepo) Upsert(_ context.Context, project *types.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Name == project.Name {
			existing.Description = project.Description
			existing.Status = project.Status
			existing.UpdatedAt = project.UpdatedAt
			return nil
		}
	}
	clone := *project
	r.items[project.ID] = &clone
	return nil
}

func (r *ProjectRepo) GetByID(_ context.Context, id string) (*types.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.items[id]
	if !ok {
		return nil, errors.NewNotFound("project %s not found", id)
	}
	clone := *project
	return &clone, nil
}

func (r *ProjectRepo) GetByName(_ context.Context, name string) (*types.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, project := range r.items {
		if project.Name == name {
			clone := *project
			return &clone, nil
		}
	}
	return nil, errors.NewNotFound("project %q not found", name)
}

func (r *ProjectRepo) List(_ context.Context) ([]*types.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Project, 0, len(r.items))
	for _, project := range r.items {
		clone := *project
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
