package interfaces

import "market-rotator/src/models"

// -----------------------------------------------------------------------------
// IRotationSink defines the interface for delivering rotation cycles to an
// external display collaborator (Server/Push).
// -----------------------------------------------------------------------------

type IRotationSink interface {
	// -----------------------------------------------------------------------------
	// BroadcastRotation pushes one rotation cycle to connected listeners.
	BroadcastRotation(update models.MRotationUpdate)

	// -----------------------------------------------------------------------------
	// Start the sink
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the sink gracefully
	Stop() error
}
