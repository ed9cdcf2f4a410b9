package discovery

import (
	"sort"
	"sync"
)

// Collector de-duplicates devices by instance name. The discovery engine
// delivers one result per datagram per interface; UIs that want a device list
// feed every result through a Collector.
type Collector struct {
	mu      sync.Mutex
	devices map[string]*Device
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{devices: make(map[string]*Device)}
}

// Add records d and reports whether the instance was new.
func (c *Collector) Add(d *Device) bool {
	if d == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.devices[d.Instance]; ok {
		existing.merge(d)
		return false
	}
	c.devices[d.Instance] = d.clone()
	return true
}

// Get returns a copy of the device for instance.
func (c *Collector) Get(instance string) (*Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.devices[instance]
	if !ok {
		return nil, false
	}
	return d.clone(), true
}

// Len returns the number of distinct instances seen.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.devices)
}

// Devices returns copies of all devices ordered by first sighting, then name.
func (c *Collector) Devices() []*Device {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Device, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, d.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DiscoveredAt.Equal(out[j].DiscoveredAt) {
			return out[i].DiscoveredAt.Before(out[j].DiscoveredAt)
		}
		return out[i].Instance < out[j].Instance
	})
	return out
}

// Reset forgets every device.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = make(map[string]*Device)
}
