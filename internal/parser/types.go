package parser

import (
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// ShipPage holds a vehicle page parsed up to the armor downloads. The armor
// meshes live behind further requests, so each hull carries the parameters
// for its armor view instead of plates.
type ShipPage struct {
	Ship  fleet.Ship
	Hulls []HullPage
}

// HullPage is one hull whose battery is parsed but whose armor scheme has
// not been fetched yet. ArmorParams is the JSON body for the armor view
// request, built from the hull's component map.
type HullPage struct {
	Hull        fleet.HullConfiguration
	ArmorParams string
}

// Assemble builds the final ship once every hull's plates and length are
// filled in.
func (sp ShipPage) Assemble() fleet.Ship {
	ship := sp.Ship
	ship.Hulls = make([]fleet.HullConfiguration, len(sp.Hulls))
	for i, h := range sp.Hulls {
		ship.Hulls[i] = h.Hull
	}
	return ship
}

// ArmorModelRef is one entry of an armor scheme: the model file to download
// and the column-major transform that places it in hull space.
type ArmorModelRef struct {
	Model     string
	Transform [4][4]float64
}
