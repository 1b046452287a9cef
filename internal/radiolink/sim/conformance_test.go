package sim_test

import (
	"testing"

	"github.com/radio-control/rangebot/internal/radiolink"
	"github.com/radio-control/rangebot/internal/radiolink/linktest"
	"github.com/radio-control/rangebot/internal/radiolink/sim"
)

func TestSimConformance(t *testing.T) {
	report := linktest.RunConformance(t, func(t *testing.T) (radiolink.Link, linktest.Harness) {
		pos := radiolink.Position{Latitude: 48.8566, Longitude: 2.3522}
		link := sim.New(sim.Config{
			LocalID: "!5f0e1a2b",
			Nodes:   []radiolink.NodeInfo{{ID: "!5f0e1a2b", Position: &pos}},
		})
		if err := link.Open(); err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		return link, link
	})

	if report.Passed == 0 {
		t.Error("no checks ran")
	}
}
