package docker

import (
	"time"

	"github.com/mmr-tortoise/layerpack/internal/model"
)

// Label key constants for install containers. Install containers are
// short-lived, but a crashed build can leave them behind; the labels let
// "layerpack clean --containers" find and remove those leftovers without
// touching anything else on the host.
const (
	// LabelPrefix namespaces all layerpack labels, keeping them clear of
	// labels set by Compose, devcontainers, or other tooling.
	LabelPrefix = "layerpack."

	// LabelManagedBy identifies containers created by this CLI.
	// Key: "layerpack.managed-by", Value: always "layerpack".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelLayer stores the layer name the install belonged to.
	LabelLayer = LabelPrefix + "layer"

	// LabelRuntime stores the target runtime of the install.
	LabelRuntime = LabelPrefix + "runtime"

	// LabelCreatedAt stores the RFC3339 timestamp of container creation.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for LabelManagedBy.
const ManagedByValue = "layerpack"

// BuildLabels constructs the label set applied to an install container.
func BuildLabels(layerName string, runtime model.Runtime, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelLayer:     layerName,
		LabelRuntime:   runtime.String(),
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}
