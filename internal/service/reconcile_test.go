package service

import (
	"testing"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func existingPassengers() []models.Passenger {
	return []models.Passenger{
		{ID: 1, BookingID: 10, FullName: "Alice Smith", Age: 34, Gender: "female", Status: models.BookingStatusPending},
		{ID: 2, BookingID: 10, FullName: "Bob Smith", Age: 36, Gender: "male", Status: models.BookingStatusPending},
	}
}

func TestReconcileAddsNewPassengers(t *testing.T) {
	incoming := []models.PassengerInput{
		{ID: 1, FullName: "Alice Smith", Age: 34, Gender: "female"},
		{ID: 2, FullName: "Bob Smith", Age: 36, Gender: "male"},
		{FullName: "Carol Smith", Age: 8, Gender: "female"},
	}

	changes, err := ReconcilePassengers(existingPassengers(), incoming)
	require.NoError(t, err)

	require.Len(t, changes.Create, 1)
	assert.Equal(t, "Carol Smith", changes.Create[0].FullName)
	assert.Equal(t, models.BookingStatusPending, changes.Create[0].Status)
	assert.Empty(t, changes.Update)
	assert.Empty(t, changes.RemoveIDs)
}

func TestReconcileRemovesAbsentPassengers(t *testing.T) {
	incoming := []models.PassengerInput{
		{ID: 2, FullName: "Bob Smith", Age: 36, Gender: "male"},
	}

	changes, err := ReconcilePassengers(existingPassengers(), incoming)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, changes.RemoveIDs)
	assert.Empty(t, changes.Create)
	assert.Empty(t, changes.Update)
}

func TestReconcileUpdatesChangedPassengersOnly(t *testing.T) {
	incoming := []models.PassengerInput{
		{ID: 1, FullName: "Alice Jones", Age: 35, Gender: "female"},
		{ID: 2, FullName: "Bob Smith", Age: 36, Gender: "male"},
	}

	changes, err := ReconcilePassengers(existingPassengers(), incoming)
	require.NoError(t, err)

	require.Len(t, changes.Update, 1)
	assert.Equal(t, int64(1), changes.Update[0].ID)
	assert.Equal(t, "Alice Jones", changes.Update[0].FullName)
	assert.Equal(t, 35, changes.Update[0].Age)
	assert.Empty(t, changes.RemoveIDs)
}

func TestReconcileNoopWhenIdentical(t *testing.T) {
	incoming := []models.PassengerInput{
		{ID: 1, FullName: "Alice Smith", Age: 34, Gender: "female"},
		{ID: 2, FullName: "Bob Smith", Age: 36, Gender: "male"},
	}

	changes, err := ReconcilePassengers(existingPassengers(), incoming)
	require.NoError(t, err)
	assert.True(t, changes.Empty())
}

func TestReconcileRejectsForeignPassengerID(t *testing.T) {
	incoming := []models.PassengerInput{
		{ID: 99, FullName: "Mallory", Age: 30, Gender: "female"},
	}

	_, err := ReconcilePassengers(existingPassengers(), incoming)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestReconcileRejectsDuplicateID(t *testing.T) {
	incoming := []models.PassengerInput{
		{ID: 1, FullName: "Alice Smith", Age: 34, Gender: "female"},
		{ID: 1, FullName: "Alice Clone", Age: 34, Gender: "female"},
	}

	_, err := ReconcilePassengers(existingPassengers(), incoming)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestReconcileEmptyListRemovesEveryone(t *testing.T) {
	changes, err := ReconcilePassengers(existingPassengers(), nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{1, 2}, changes.RemoveIDs)
	assert.Empty(t, changes.Create)
	assert.Empty(t, changes.Update)
}
