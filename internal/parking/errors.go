package parking

import "errors"

var (
	ErrNoSlotAvailable  = errors.New("no slot available")
	ErrInvalidSlot      = errors.New("invalid slot")
	ErrRecordNotFound   = errors.New("vehicle record not found")
	ErrChargerBusy      = errors.New("charger busy")
	ErrChargerNotFound  = errors.New("charger not found")
	ErrDuplicateLevel   = errors.New("level already exists")
	ErrTopologyNotFound = errors.New("topology not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownCity      = errors.New("unknown city")
)
