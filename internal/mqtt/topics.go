package mqtt

import (
	"fmt"

	"github.com/rm-hull/prix-carburant/internal/models"
)

// Topics builds topic names under a base prefix and a Home Assistant discovery prefix.
type Topics struct {
	Prefix          string
	DiscoveryPrefix string
}

func (t Topics) Status() string {
	return t.Prefix + "/status"
}

func (t Topics) State(stationID int, fuel models.Fuel) string {
	return fmt.Sprintf("%s/%d/%s/state", t.Prefix, stationID, fuel.Key())
}

func (t Topics) Attributes(stationID int, fuel models.Fuel) string {
	return fmt.Sprintf("%s/%d/%s/attributes", t.Prefix, stationID, fuel.Key())
}

func (t Topics) Discovery(uniqueID string) string {
	return fmt.Sprintf("%s/sensor/%s/config", t.DiscoveryPrefix, uniqueID)
}
