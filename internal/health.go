package internal

import (
	"github.com/tavsec/gin-healthcheck/checks"
)

type registryCheck struct {
	registry StationRegistry
}

// RegistryCheck passes once the registry has completed a price refresh.
func RegistryCheck(registry StationRegistry) checks.Check {
	return &registryCheck{registry: registry}
}

func (c *registryCheck) Pass() bool {
	return c.registry.LastUpdated() != nil
}

func (c *registryCheck) Name() string {
	return "registry"
}
