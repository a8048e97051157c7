// README: Vehicle status, allowed transitions and read-only snapshots.
package vehicle

import (
	"errors"

	"ridesim/internal/modules/passenger"
	"ridesim/internal/types"
)

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusPickingUp Status = "PICKING_UP"
	StatusOnRide    Status = "ON_RIDE"
)

// DefaultCapacity is the seat count of every vehicle.
const DefaultCapacity = 3

// mixedGroupLimit caps the load of a vehicle carrying both genders.
const mixedGroupLimit = 2

var (
	ErrIneligibleRider   = errors.New("rider not eligible for vehicle")
	ErrInvalidTransition = errors.New("invalid vehicle status transition")
)

// AllowedTransitions represents the ride lifecycle as code.
var AllowedTransitions = map[Status][]Status{
	StatusAvailable: {StatusPickingUp, StatusOnRide},
	StatusPickingUp: {StatusPickingUp, StatusAvailable, StatusOnRide},
	StatusOnRide:    {StatusAvailable},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type RiderSummary struct {
	ID          types.ID         `json:"id"`
	Gender      passenger.Gender `json:"gender"`
	Name        string           `json:"name"`
	AvatarURL   string           `json:"avatar_url"`
	Origin      types.Point      `json:"origin"`
	Destination string           `json:"destination"`
}

// Snapshot is a consistent copy of a vehicle's mutable state.
type Snapshot struct {
	ID              int            `json:"id"`
	DriverName      string         `json:"driver_name"`
	DriverAvatarURL string         `json:"driver_avatar_url"`
	Status          Status         `json:"status"`
	Position        types.Point    `json:"position"`
	Target          types.Point    `json:"target"`
	Earnings        types.Money    `json:"earnings"`
	RiderCount      int            `json:"rider_count"`
	Riders          []RiderSummary `json:"riders"`
	HeadingTo       types.ID       `json:"heading_to,omitempty"`
	Message         string         `json:"message"`
}

func summarize(p *passenger.Passenger) RiderSummary {
	return RiderSummary{
		ID:          p.ID,
		Gender:      p.Gender,
		Name:        p.Name,
		AvatarURL:   p.AvatarURL,
		Origin:      p.Origin,
		Destination: p.Destination,
	}
}
