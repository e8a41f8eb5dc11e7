package build

import "errors"

// Sentinel errors wrapped by the classified error Run returns.
var (
	ErrNoArtifact  = errors.New("epubbuild: no artifact produced")
	ErrInterrupted = errors.New("epubbuild: build interrupted")
)
