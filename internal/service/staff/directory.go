package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
)

const doctorsKey = "doctors"

type DirectoryService interface {
	ListDoctors(ctx context.Context) ([]*model.Staff, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*model.Staff, error)
}

// Directory serves the doctor list from a short-lived cache.
type Directory struct {
	repo  repository.StaffRepository
	cache *cache.Cache
}

func NewDirectory(repo repository.StaffRepository, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Directory{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (d *Directory) ListDoctors(ctx context.Context) ([]*model.Staff, error) {
	if cached, found := d.cache.Get(doctorsKey); found {
		return cached.([]*model.Staff), nil
	}

	doctors, err := d.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	d.cache.Set(doctorsKey, doctors, cache.DefaultExpiration)
	return doctors, nil
}

func (d *Directory) GetStaff(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	member, err := d.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("staff", err)
		}
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	return member, nil
}

// Invalidate drops the cached doctor list.
func (d *Directory) Invalidate() {
	d.cache.Delete(doctorsKey)
}

var _ DirectoryService = (*Directory)(nil)
