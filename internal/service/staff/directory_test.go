package staff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository/repotest"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
)

func TestDirectory_ListDoctorsIsCached(t *testing.T) {
	store := repotest.NewStore()
	store.AddStaff(model.Staff{Name: "Dr. Mehta", Role: "doctor"})
	store.AddStaff(model.Staff{Name: "Priya", Role: "receptionist"})
	dir := NewDirectory(store.Staff(), time.Minute)
	ctx := context.Background()

	doctors, err := dir.ListDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Mehta", doctors[0].Name)

	store.AddStaff(model.Staff{Name: "Dr. Anand", Role: "doctor"})

	doctors, err = dir.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 1)

	dir.Invalidate()
	doctors, err = dir.ListDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Dr. Anand", doctors[0].Name)
}

func TestDirectory_GetStaff(t *testing.T) {
	store := repotest.NewStore()
	member := store.AddStaff(model.Staff{Name: "Priya", Role: "receptionist"})
	dir := NewDirectory(store.Staff(), time.Minute)

	got, err := dir.GetStaff(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, "Priya", got.Name)

	_, err = dir.GetStaff(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.NotFoundError)
}
