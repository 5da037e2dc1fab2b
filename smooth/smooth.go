// Package smooth provides fixed interval smoothers of tracked beliefs.
package smooth

import posetrack "github.com/milosgajdos/go-posetrack"

// RTS is Rauch Tung Striebel fixed interval smoother
type RTS interface {
	// Smoother smooths filter estimates
	posetrack.Smoother
}
