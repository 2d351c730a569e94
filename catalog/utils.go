package catalog

import "github.com/google/uuid"

// A routing epoch changes whenever a namespace's chunk layout is rebuilt
// from scratch; major versions advance within one epoch.
func newEpoch() string {
	return uuid.NewString()
}
