package kvconfig

import "github.com/nvandessel/gridsweep/internal/constants"

// Kind is the value kind a flat-config field must hold.
type Kind int

const (
	// KindNumber accepts integers and floats.
	KindNumber Kind = iota
	// KindBool accepts booleans (and numbers, nonzero meaning true); rendered as 0/1.
	KindBool
	// KindString accepts strings only.
	KindString
)

// Field declares one line of the flat config file.
type Field struct {
	// Key is the flat key written to the file.
	Key string

	// Source is the dotted document path the value is read from.
	Source string

	// Kind is the expected value kind.
	Kind Kind

	// Family restricts the field to one controller family. Empty means the
	// field is always required.
	Family string
}

// Schema is the versioned flat-config layout, in file order. The order is
// part of the simulator contract and is intentionally not alphabetical.
var Schema = []Field{
	{Key: "simulation.time_step", Kind: KindNumber},
	{Key: "simulation.duration", Kind: KindNumber},
	{Key: "simulation.warmup", Kind: KindNumber},
	{Key: constants.SeedPath, Kind: KindNumber},

	{Key: "network.grid_size", Kind: KindNumber},
	{Key: "network.cell_length", Kind: KindNumber},
	{Key: "network.link_length_cells", Kind: KindNumber},
	{Key: "network.lanes_per_direction", Kind: KindNumber},

	{Key: "vehicles.vmax_cells_per_step", Kind: KindNumber},
	{Key: "vehicles.slowdown_probability", Kind: KindNumber},
	{Key: "vehicles.vehicle_length_cells", Kind: KindNumber},

	{Key: constants.ArrivalRatePath, Kind: KindNumber},
	{Key: "demand.routing_randomness", Source: "demand.routing.randomness", Kind: KindNumber},

	{Key: constants.ControllerPath, Kind: KindString},

	{Key: "traffic_lights.fixed.cycle_time", Kind: KindNumber, Family: constants.ControllerFixed},
	{Key: "traffic_lights.fixed.green_ns", Kind: KindNumber, Family: constants.ControllerFixed},

	{Key: "traffic_lights.actuated.min_green", Kind: KindNumber, Family: constants.ControllerActuated},
	{Key: "traffic_lights.actuated.max_green", Kind: KindNumber, Family: constants.ControllerActuated},
	{Key: "traffic_lights.actuated.queue_threshold", Kind: KindNumber, Family: constants.ControllerActuated},

	{Key: "traffic_lights.max_pressure.min_green", Kind: KindNumber, Family: constants.ControllerMaxPressure},
	{Key: "traffic_lights.max_pressure.max_green", Kind: KindNumber, Family: constants.ControllerMaxPressure},

	{Key: "output.export_interval", Kind: KindNumber},
	{Key: "output.save_queue_snapshots", Kind: KindBool},
	{Key: "output.save_vehicle_trajectories", Kind: KindBool},
}

// source returns the document path a field is read from.
func (f Field) source() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Key
}

// knownFamily reports whether name is a controller family in the schema.
func knownFamily(name string) bool {
	for _, f := range constants.ControllerFamilies {
		if f == name {
			return true
		}
	}
	return false
}
