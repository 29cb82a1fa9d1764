package parking

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOccupancyCollector(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 1, 2, 1)
	svc.ParkVehicle(ctx, testCity, testSite, 1, VehicleAttributes{RegistrationNumber: "R1", Color: "Red"})
	parkEV(t, svc, "EV1", 0)
	parkEV(t, svc, "EV2", 0)

	collector := NewOccupancyCollector(svc.Directory())

	expected := `
# HELP parking_slots_occupied Number of occupied slots on the level
# TYPE parking_slots_occupied gauge
parking_slots_occupied{city="Boston",level="1",site="BackBay",slot_kind="ev"} 2
parking_slots_occupied{city="Boston",level="1",site="BackBay",slot_kind="regular"} 1
# HELP parking_chargers_in_use Chargers with an active session on the level
# TYPE parking_chargers_in_use gauge
parking_chargers_in_use{city="Boston",level="1",site="BackBay"} 1
# HELP parking_charger_queue_depth Slots waiting for the charger
# TYPE parking_charger_queue_depth gauge
parking_charger_queue_depth{charger_id="BosBa1001",city="Boston",level="1",site="BackBay"} 1
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"parking_slots_occupied", "parking_chargers_in_use", "parking_charger_queue_depth")
	require.NoError(t, err)

	require.Equal(t, 6, testutil.CollectAndCount(collector))
}
