package service

import (
	"fmt"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"
)

// ReconcilePassengers diffs the incoming passenger list against the
// booking's current set. The incoming list is authoritative: passengers
// it omits are scheduled for removal, entries without an id become
// inserts, and entries with an id become in-place updates. An id that
// does not belong to the booking, or appears twice, rejects the whole
// request.
func ReconcilePassengers(current []models.Passenger, incoming []models.PassengerInput) (models.PassengerChangeSet, error) {
	var changes models.PassengerChangeSet

	existing := make(map[int64]models.Passenger, len(current))
	for _, p := range current {
		existing[p.ID] = p
	}

	seen := make(map[int64]bool, len(incoming))
	kept := make(map[int64]bool, len(incoming))

	for _, in := range incoming {
		if in.ID == 0 {
			changes.Create = append(changes.Create, models.Passenger{
				FullName: in.FullName,
				Age:      in.Age,
				Gender:   in.Gender,
				Status:   models.BookingStatusPending,
			})
			continue
		}

		if seen[in.ID] {
			return models.PassengerChangeSet{}, fmt.Errorf("%w: passenger %d listed twice", apperrors.ErrInvalidRequest, in.ID)
		}
		seen[in.ID] = true

		prev, ok := existing[in.ID]
		if !ok {
			return models.PassengerChangeSet{}, fmt.Errorf("%w: passenger %d does not belong to this booking", apperrors.ErrInvalidRequest, in.ID)
		}
		kept[in.ID] = true

		if prev.FullName == in.FullName && prev.Age == in.Age && prev.Gender == in.Gender {
			continue
		}

		prev.FullName = in.FullName
		prev.Age = in.Age
		prev.Gender = in.Gender
		changes.Update = append(changes.Update, prev)
	}

	for _, p := range current {
		if !kept[p.ID] {
			changes.RemoveIDs = append(changes.RemoveIDs, p.ID)
		}
	}

	return changes, nil
}
