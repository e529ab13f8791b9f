package model

import "errors"

// Domain errors, checked with errors.Is.
var (
	// ErrInvalidCommand is returned before any network call when a command
	// name is not part of the known command set.
	ErrInvalidCommand = errors.New("telldus: invalid command")

	// ErrDeviceNotFound is returned when no cached or fetched device matches an id.
	ErrDeviceNotFound = errors.New("telldus: device not found")

	// ErrInvalidDimLevel is returned when a dim level is outside 0-255.
	ErrInvalidDimLevel = errors.New("telldus: invalid dim level")

	// ErrSensorNotFound is returned when no cached or fetched sensor matches an id.
	ErrSensorNotFound = errors.New("telldus: sensor not found")
)
