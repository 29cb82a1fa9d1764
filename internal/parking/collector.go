package parking

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// OccupancyCollector exposes live slot, charger and queue state of every
// level at scrape time.
type OccupancyCollector struct {
	directory *Directory

	slotsTotal    *prometheus.Desc
	slotsOccupied *prometheus.Desc
	chargersBusy  *prometheus.Desc
	queueDepth    *prometheus.Desc
}

func NewOccupancyCollector(directory *Directory) *OccupancyCollector {
	levelLabels := []string{"city", "site", "level", "slot_kind"}
	return &OccupancyCollector{
		directory: directory,
		slotsTotal: prometheus.NewDesc("parking_slots_total",
			"Number of slots on the level", levelLabels, nil),
		slotsOccupied: prometheus.NewDesc("parking_slots_occupied",
			"Number of occupied slots on the level", levelLabels, nil),
		chargersBusy: prometheus.NewDesc("parking_chargers_in_use",
			"Chargers with an active session on the level", []string{"city", "site", "level"}, nil),
		queueDepth: prometheus.NewDesc("parking_charger_queue_depth",
			"Slots waiting for the charger", []string{"city", "site", "level", "charger_id"}, nil),
	}
}

func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.slotsTotal
	ch <- c.slotsOccupied
	ch <- c.chargersBusy
	ch <- c.queueDepth
}

func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	for _, lv := range c.directory.Levels() {
		lv.mu.Lock()
		level := strconv.Itoa(lv.Number)
		for _, isEV := range []bool{false, true} {
			kind := slotKind(isEV)
			ch <- prometheus.MustNewConstMetric(c.slotsTotal, prometheus.GaugeValue,
				float64(lv.Capacity(isEV)), lv.City, lv.Site, level, kind)
			ch <- prometheus.MustNewConstMetric(c.slotsOccupied, prometheus.GaugeValue,
				float64(len(lv.OccupiedSlots(isEV))), lv.City, lv.Site, level, kind)
		}

		busy := 0
		for _, id := range lv.chargerIDs {
			if !lv.chargers.Available(id) {
				busy++
			}
			ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue,
				float64(lv.queues.Len(id)), lv.City, lv.Site, level, id)
		}
		ch <- prometheus.MustNewConstMetric(c.chargersBusy, prometheus.GaugeValue,
			float64(busy), lv.City, lv.Site, level)
		lv.mu.Unlock()
	}
}
