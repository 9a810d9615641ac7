package model

import "fmt"

// LockedStateError is returned when a mutation targets a locked listing.
type LockedStateError struct {
	ListingID string
}

func (e *LockedStateError) Error() string {
	return fmt.Sprintf("listing %s is locked and cannot be modified", e.ListingID)
}
