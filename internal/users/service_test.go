package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

func newUserFixture(t *testing.T) (Service, *Repository) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))

	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func seedUser(t *testing.T, repo *Repository) *models.User {
	t.Helper()
	phone := "9876543210"
	user := &models.User{
		Email:        "Ravi@Example.COM",
		PasswordHash: "hash",
		FirstName:    "Ravi",
		LastName:     "Kumar",
		Phone:        &phone,
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestGetProfile(t *testing.T) {
	svc, repo := newUserFixture(t)
	user := seedUser(t, repo)

	dto, err := svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.com", dto.Email)
	assert.Equal(t, "Ravi", dto.FirstName)
	assert.Equal(t, "9876543210", dto.Phone)
}

func TestGetProfile_UnknownUser(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.GetProfile(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProfile(t *testing.T) {
	svc, repo := newUserFixture(t)
	user := seedUser(t, repo)

	dto, err := svc.UpdateProfile(context.Background(), user.ID, ProfileInput{
		FirstName: "  Ravindra ",
		LastName:  "Kumar",
		Phone:     "",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravindra", dto.FirstName)
	assert.Empty(t, dto.Phone)

	reloaded, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Phone)
}

func TestUpdateProfile_RequiresFirstName(t *testing.T) {
	svc, repo := newUserFixture(t)
	user := seedUser(t, repo)

	_, err := svc.UpdateProfile(context.Background(), user.ID, ProfileInput{FirstName: "   "})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
