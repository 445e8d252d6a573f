// Package factories builds synthetic but structurally valid integrated
// networks for demos and tests: a road grid, a power chain hanging off it,
// and a water chain coupled to the power side through pump motors and the
// generator's reservoir.
package factories

import (
	"fmt"
	"math/rand"

	"github.com/akaushal/resinet/internal/models"
	"github.com/jaswdr/faker"
)

// NetworkOptions sizes the generated network.
type NetworkOptions struct {
	Seed      int64
	GridSize  int // road grid is GridSize x GridSize nodes
	Buses     int // power chain length; one load per bus
	Motors    int // pump motors, one per water pump
	Junctions int // water chain length
}

func DefaultNetworkOptions(seed int64) NetworkOptions {
	return NetworkOptions{
		Seed:      seed,
		GridSize:  4,
		Buses:     6,
		Motors:    2,
		Junctions: 8,
	}
}

type NetworkFactory struct {
	opts NetworkOptions
	rng  *rand.Rand
	fake faker.Faker
}

func NewNetworkFactory(opts NetworkOptions) *NetworkFactory {
	if opts.GridSize < 2 {
		opts.GridSize = 2
	}
	if opts.Buses < 2 {
		opts.Buses = 2
	}
	if opts.Motors < 1 {
		opts.Motors = 1
	}
	if opts.Motors > opts.Buses {
		opts.Motors = opts.Buses
	}
	if opts.Junctions < 2 {
		opts.Junctions = 2
	}
	src := rand.NewSource(opts.Seed)
	return &NetworkFactory{
		opts: opts,
		rng:  rand.New(src),
		fake: faker.NewWithSeed(src),
	}
}

// Build generates the three networks, the cross-network couplings and the
// derived transport access edges. The same options always yield the same
// network.
func (f *NetworkFactory) Build() (*models.Network, *models.DependencyTable, error) {
	name := fmt.Sprintf("%s-grid", f.fake.Address().City())
	net := models.NewNetwork(name)
	deps := models.NewDependencyTable()

	zones := f.zoneNames(3)

	if err := f.buildTransport(net, zones); err != nil {
		return nil, nil, err
	}
	motorIDs, err := f.buildPower(net, zones)
	if err != nil {
		return nil, nil, err
	}
	pumpIDs, err := f.buildWater(net, zones)
	if err != nil {
		return nil, nil, err
	}

	for i, pumpID := range pumpIDs {
		motorID := motorIDs[i%len(motorIDs)]
		if err := deps.AddPumpMotorCoupling(net, pumpID, motorID); err != nil {
			return nil, nil, err
		}
	}
	if err := deps.AddGenReservoirCoupling(net, "W_R1", "P_G1"); err != nil {
		return nil, nil, err
	}
	if err := deps.BuildTransportAccess(net); err != nil {
		return nil, nil, err
	}
	return net, deps, nil
}

func (f *NetworkFactory) zoneNames(n int) []string {
	zones := make([]string, n)
	for i := range zones {
		zones[i] = f.fake.Address().StreetName()
	}
	return zones
}

func (f *NetworkFactory) zone(zones []string) string {
	return zones[f.rng.Intn(len(zones))]
}

// buildTransport lays a GridSize x GridSize road grid with 10-unit spacing.
func (f *NetworkFactory) buildTransport(net *models.Network, zones []string) error {
	n := f.opts.GridSize
	nodeID := func(i, j int) string { return fmt.Sprintf("T_N%d", i*n+j+1) }

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c, err := models.NewComponent(nodeID(i, j))
			if err != nil {
				return err
			}
			c.Coord = models.Point{X: float64(i) * 10, Y: float64(j) * 10}
			c.Zone = f.zone(zones)
			if err := net.Add(c); err != nil {
				return err
			}
		}
	}

	link := 0
	addLink := func(from, to string) error {
		link++
		c, err := models.NewComponent(fmt.Sprintf("T_L%d", link))
		if err != nil {
			return err
		}
		c.From, c.To = from, to
		c.Capacity = 5 + f.rng.Float64()*10 // minutes
		c.Zone = f.zone(zones)
		return net.Add(c)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j+1 < n {
				if err := addLink(nodeID(i, j), nodeID(i, j+1)); err != nil {
					return err
				}
			}
			if i+1 < n {
				if err := addLink(nodeID(i, j), nodeID(i+1, j)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// buildPower builds a bus chain with one generator at the head, a load per
// bus, and motors spread over the first Motors buses. Returns the motor ids
// in creation order.
func (f *NetworkFactory) buildPower(net *models.Network, zones []string) ([]string, error) {
	span := float64(f.opts.GridSize-1) * 10
	var totalDemand float64
	var motors []string

	for k := 1; k <= f.opts.Buses; k++ {
		bus, err := models.NewComponent(fmt.Sprintf("P_B%d", k))
		if err != nil {
			return nil, err
		}
		bus.Coord = models.Point{X: span * float64(k-1) / float64(f.opts.Buses-1), Y: -5}
		bus.Zone = f.zone(zones)
		if err := net.Add(bus); err != nil {
			return nil, err
		}

		load, err := models.NewComponent(fmt.Sprintf("P_LO%d", k))
		if err != nil {
			return nil, err
		}
		load.Node = bus.ID
		load.BaseDemand = 50 + f.rng.Float64()*100
		load.Coord = bus.Coord
		load.Zone = bus.Zone
		totalDemand += load.BaseDemand
		if err := net.Add(load); err != nil {
			return nil, err
		}

		if k > 1 {
			line, err := models.NewComponent(fmt.Sprintf("P_L%d", k-1))
			if err != nil {
				return nil, err
			}
			line.From = fmt.Sprintf("P_B%d", k-1)
			line.To = bus.ID
			line.Zone = bus.Zone
			if err := net.Add(line); err != nil {
				return nil, err
			}
		}
	}

	for m := 1; m <= f.opts.Motors; m++ {
		motor, err := models.NewComponent(fmt.Sprintf("P_MP%d", m))
		if err != nil {
			return nil, err
		}
		busID := fmt.Sprintf("P_B%d", m)
		motor.Node = busID
		motor.BaseDemand = 20 + f.rng.Float64()*30
		motor.Coord = net.Get(busID).Coord
		motor.Zone = net.Get(busID).Zone
		totalDemand += motor.BaseDemand
		if err := net.Add(motor); err != nil {
			return nil, err
		}
		motors = append(motors, motor.ID)
	}

	gen, err := models.NewComponent("P_G1")
	if err != nil {
		return nil, err
	}
	gen.Node = "P_B1"
	gen.Capacity = totalDemand * 1.2
	gen.Coord = net.Get("P_B1").Coord
	gen.Zone = net.Get("P_B1").Zone
	if err := net.Add(gen); err != nil {
		return nil, err
	}
	return motors, nil
}

// buildWater builds a reservoir-fed junction chain ending in a tank. Every
// few links is a pump instead of a pipe; one pump per motor. Returns pump ids
// in chain order.
func (f *NetworkFactory) buildWater(net *models.Network, zones []string) ([]string, error) {
	span := float64(f.opts.GridSize-1) * 10

	res, err := models.NewComponent("W_R1")
	if err != nil {
		return nil, err
	}
	res.Coord = models.Point{X: -5, Y: span + 5}
	res.Zone = f.zone(zones)
	if err := net.Add(res); err != nil {
		return nil, err
	}

	for k := 1; k <= f.opts.Junctions; k++ {
		j, err := models.NewComponent(fmt.Sprintf("W_J%d", k))
		if err != nil {
			return nil, err
		}
		j.Coord = models.Point{X: span * float64(k-1) / float64(f.opts.Junctions-1), Y: span + 5}
		j.BaseDemand = 10 + f.rng.Float64()*40
		j.Zone = f.zone(zones)
		if err := net.Add(j); err != nil {
			return nil, err
		}
	}

	tank, err := models.NewComponent("W_T1")
	if err != nil {
		return nil, err
	}
	tank.Coord = models.Point{X: span + 5, Y: span + 5}
	tank.Zone = f.zone(zones)
	if err := net.Add(tank); err != nil {
		return nil, err
	}

	// Chain: reservoir -> J1 -> ... -> Jn -> tank. The first Motors links
	// from the reservoir side are pumps.
	var pumps []string
	pipe := 0
	addLink := func(from, to string, pump bool) error {
		var c *models.Component
		var err error
		if pump {
			c, err = models.NewComponent(fmt.Sprintf("W_WP%d", len(pumps)+1))
			if err == nil {
				pumps = append(pumps, c.ID)
			}
		} else {
			pipe++
			c, err = models.NewComponent(fmt.Sprintf("W_PMA%d", pipe))
		}
		if err != nil {
			return err
		}
		c.From, c.To = from, to
		c.Zone = f.zone(zones)
		return net.Add(c)
	}

	if err := addLink("W_R1", "W_J1", true); err != nil {
		return nil, err
	}
	for k := 1; k < f.opts.Junctions; k++ {
		pump := len(pumps) < f.opts.Motors && k%3 == 0
		if err := addLink(fmt.Sprintf("W_J%d", k), fmt.Sprintf("W_J%d", k+1), pump); err != nil {
			return nil, err
		}
	}
	if err := addLink(fmt.Sprintf("W_J%d", f.opts.Junctions), "W_T1", false); err != nil {
		return nil, err
	}
	return pumps, nil
}
