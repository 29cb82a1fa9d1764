package parking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"k8s.io/utils/clock"

	"ev-parking/internal/logging"
)

type Site struct {
	Name   string
	City   string
	levels map[int]*Level
}

func newSite(name, city string) *Site {
	return &Site{Name: name, City: city, levels: make(map[int]*Level)}
}

// AddLevel creates a level on the site. Level numbers are unique per site.
func (s *Site) AddLevel(number, regularSlots, evSlots, chargers int, clk clock.PassiveClock) (*Level, error) {
	if _, exists := s.levels[number]; exists {
		return nil, fmt.Errorf("%w: level %d in site %s", ErrDuplicateLevel, number, s.Name)
	}
	level := NewLevel(s.City, s.Name, number, regularSlots, evSlots, chargers, clk)
	s.levels[number] = level
	return level, nil
}

func (s *Site) Level(number int) (*Level, bool) {
	l, ok := s.levels[number]
	return l, ok
}

func (s *Site) LevelNumbers() []int {
	out := make([]int, 0, len(s.levels))
	for n := range s.levels {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

type City struct {
	Name  string
	sites map[string]*Site
}

func newCity(name string) *City {
	return &City{Name: name, sites: make(map[string]*Site)}
}

func (c *City) GetOrCreateSite(name string) *Site {
	site, ok := c.sites[name]
	if !ok {
		site = newSite(name, c.Name)
		c.sites[name] = site
	}
	return site
}

func (c *City) Site(name string) (*Site, bool) {
	s, ok := c.sites[name]
	return s, ok
}

func (c *City) SiteNames() []string {
	out := make([]string, 0, len(c.sites))
	for n := range c.sites {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Directory resolves (city, site, level) and charger ids to levels. City and
// Site are plain containers; Directory serializes access to all of them.
type Directory struct {
	mu       sync.RWMutex
	cities   map[string]*City
	chargers map[string]*Level
	clock    clock.PassiveClock
}

func NewDirectory(clk clock.PassiveClock) *Directory {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Directory{
		cities:   make(map[string]*City),
		chargers: make(map[string]*Level),
		clock:    clk,
	}
}

func (d *Directory) GetOrCreateCity(name string) *City {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getOrCreateCity(name)
}

func (d *Directory) getOrCreateCity(name string) *City {
	city, ok := d.cities[name]
	if !ok {
		city = newCity(name)
		d.cities[name] = city
	}
	return city
}

func (d *Directory) AddLevel(ctx context.Context, city, site string, number, regularSlots, evSlots, chargers int) (*Level, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	level, err := d.getOrCreateCity(city).GetOrCreateSite(site).AddLevel(number, regularSlots, evSlots, chargers, d.clock)
	if err != nil {
		return nil, err
	}

	for _, id := range level.chargerIDs {
		if owner, taken := d.chargers[id]; taken {
			logging.Warn(ctx, "charger id collision, keeping first owner",
				"charger_id", id,
				"owner_city", owner.City, "owner_site", owner.Site, "owner_level", owner.Number,
			)
			continue
		}
		d.chargers[id] = level
	}
	return level, nil
}

func (d *Directory) Level(city, site string, number int) (*Level, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.cities[city]
	if !ok {
		return nil, fmt.Errorf("%w: city %q", ErrTopologyNotFound, city)
	}
	s, ok := c.Site(site)
	if !ok {
		return nil, fmt.Errorf("%w: site %q in city %q", ErrTopologyNotFound, site, city)
	}
	l, ok := s.Level(number)
	if !ok {
		return nil, fmt.Errorf("%w: level %d in site %q, city %q", ErrTopologyNotFound, number, site, city)
	}
	return l, nil
}

func (d *Directory) LevelForCharger(chargerID string) (*Level, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.chargers[chargerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChargerNotFound, chargerID)
	}
	return l, nil
}

func (d *Directory) CityNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.cities))
	for n := range d.cities {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (d *Directory) SiteNames(city string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.cities[city]
	if !ok {
		return nil
	}
	return c.SiteNames()
}

func (d *Directory) LevelNumbers(city, site string) []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.cities[city]
	if !ok {
		return nil
	}
	s, ok := c.Site(site)
	if !ok {
		return nil
	}
	return s.LevelNumbers()
}

// Levels returns every level ordered by city, site and level number.
func (d *Directory) Levels() []*Level {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*Level
	cityNames := make([]string, 0, len(d.cities))
	for n := range d.cities {
		cityNames = append(cityNames, n)
	}
	sort.Strings(cityNames)
	for _, cn := range cityNames {
		c := d.cities[cn]
		for _, sn := range c.SiteNames() {
			s := c.sites[sn]
			for _, ln := range s.LevelNumbers() {
				out = append(out, s.levels[ln])
			}
		}
	}
	return out
}
