// README: Simulation handlers for state, spawning, start and reset.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridesim/internal/modules/simulation"
	"ridesim/internal/types"
)

type SimulationHandler struct {
	sim *simulation.Service
}

func NewSimulationHandler(sim *simulation.Service) *SimulationHandler {
	return &SimulationHandler{sim: sim}
}

func (h *SimulationHandler) State(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.sim.State())
}

type addVehicleReq struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// AddVehicle spawns a vehicle, at {x,y} when both are given.
func (h *SimulationHandler) AddVehicle(c *gin.Context) {
	var req addVehicleReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if (req.X == nil) != (req.Y == nil) {
		writeError(c, http.StatusBadRequest, "x and y go together")
		return
	}
	var id int
	if req.X != nil {
		id = h.sim.SpawnVehicleAt(types.Point{X: *req.X, Y: *req.Y})
	} else {
		id = h.sim.SpawnVehicle()
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "vehicle_id": id})
}

type addPassengersReq struct {
	MaleCount   int `json:"male_count"`
	FemaleCount int `json:"female_count"`
}

func (h *SimulationHandler) AddPassengers(c *gin.Context) {
	var req addPassengersReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ids, err := h.sim.SpawnPassengers(req.MaleCount, req.FemaleCount)
	if err != nil {
		writeSimulationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"success":       true,
		"passenger_ids": ids,
		"added":         len(ids),
	})
}

func (h *SimulationHandler) Start(c *gin.Context) {
	if err := h.sim.Start(); err != nil {
		writeSimulationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "running": true})
}

func (h *SimulationHandler) Reset(c *gin.Context) {
	h.sim.Reset()
	writeJSON(c, http.StatusOK, gin.H{"success": true, "running": false})
}
