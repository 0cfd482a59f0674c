package store

import (
	"context"

	"codeberg.org/mutker/virtualdyno/internal/dyno"
)

// RunRepository persists completed dyno runs. Runs are immutable once
// stored; there is no update operation.
type RunRepository interface {
	Store(ctx context.Context, run *dyno.Run) error
	Get(ctx context.Context, id string) (*dyno.Run, error)
	ListByVehicleVersion(ctx context.Context, version string) ([]RunSummary, error)
	Close() error
}

// RunSummary is the indexed subset of a run used for listings; the
// full run is fetched by ID when needed.
type RunSummary struct {
	ID             string  `json:"id"`
	VehicleVersion string  `json:"vehicle_version"`
	Source         string  `json:"source"`
	Status         string  `json:"status"`
	Confidence     float64 `json:"confidence"`
	PeakTorqueNm   float64 `json:"peak_torque_nm"`
	PeakPowerW     float64 `json:"peak_power_w"`
	CreatedAt      string  `json:"created_at"`
}
