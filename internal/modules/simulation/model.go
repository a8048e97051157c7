// README: Simulation snapshot views and command errors.
package simulation

import (
	"errors"

	"ridesim/internal/modules/passenger"
	"ridesim/internal/modules/vehicle"
	"ridesim/internal/types"
)

var (
	ErrAlreadyRunning = errors.New("simulation already running")
	ErrBadRequest     = errors.New("bad request")
)

type PassengerStatus string

const (
	PassengerWaiting PassengerStatus = "WAITING"
	PassengerInRide  PassengerStatus = "IN_RIDE"
)

type PassengerView struct {
	ID          types.ID         `json:"id"`
	Gender      passenger.Gender `json:"gender"`
	Name        string           `json:"name"`
	AvatarURL   string           `json:"avatar_url"`
	Position    types.Point      `json:"position"`
	Destination string           `json:"destination"`
	Status      PassengerStatus  `json:"status"`
	VehicleID   int              `json:"vehicle_id,omitempty"`
}

// State is a read-only picture of the whole simulation.
type State struct {
	Running       bool               `json:"running"`
	Vehicles      []vehicle.Snapshot `json:"vehicles"`
	Passengers    []PassengerView    `json:"passengers"`
	QueueSize     int                `json:"queue_size"`
	MalesServed   int                `json:"males_served"`
	FemalesServed int                `json:"females_served"`
	TotalServed   int                `json:"total_served"`
}

func waitingView(p *passenger.Passenger) PassengerView {
	return PassengerView{
		ID:          p.ID,
		Gender:      p.Gender,
		Name:        p.Name,
		AvatarURL:   p.AvatarURL,
		Position:    p.Origin,
		Destination: p.Destination,
		Status:      PassengerWaiting,
	}
}
