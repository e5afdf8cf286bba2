package worker

import (
	"errors"
	"fmt"

	"github.com/shellfall/engine/v2/internal/parser"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// fetchShip downloads and parses one ship with its full armor model, caches
// it and saves it to the backend. The nation tag comes from the country
// listing; direct fetches leave it empty.
func (m *Manager) fetchShip(id, nation string) (*fleet.Ship, error) {
	page, err := m.deps.APIClient.VehiclePage(id)
	if err != nil {
		return nil, fmt.Errorf("fetch vehicle page %s: %w", id, err)
	}
	shipPage, err := m.deps.Parser.ParseShip(id, page)
	if err != nil {
		return nil, fmt.Errorf("parse ship %s: %w", id, err)
	}
	shipPage.Ship.Nation = nation

	for i := range shipPage.Hulls {
		if err := m.fetchHullArmor(id, &shipPage.Hulls[i]); err != nil {
			return nil, fmt.Errorf("ship %s: %w", id, err)
		}
	}

	ship := shipPage.Assemble()
	m.deps.FleetCache.Add(ship)
	if m.hasBackend() {
		if err := m.backend.SaveShip(&ship); err != nil {
			return nil, fmt.Errorf("save ship %s: %w", id, err)
		}
	}
	return &ship, nil
}

// fetchHullArmor resolves one hull's armor scheme into plates. Hulls whose
// component table produced no armor parameters keep an empty mesh.
func (m *Manager) fetchHullArmor(vehicleID string, hull *parser.HullPage) error {
	if hull.ArmorParams == "" {
		return nil
	}
	view, err := m.deps.APIClient.ArmorView(vehicleID, hull.ArmorParams)
	if err != nil {
		return fmt.Errorf("fetch armor view for hull %s: %w", hull.Hull.Name, err)
	}
	refs, err := m.deps.Parser.ParseArmorScheme(view)
	if err != nil {
		return fmt.Errorf("parse armor scheme for hull %s: %w", hull.Hull.Name, err)
	}

	for _, ref := range refs {
		modelPage, err := m.deps.APIClient.ArmorModel(ref.Model)
		if err != nil {
			return fmt.Errorf("fetch armor model %s: %w", ref.Model, err)
		}
		// 404ed models come back empty and are simply gone from the CDN.
		if modelPage == "" {
			m.logger().Warn("Armor model missing, skipping", "ship", vehicleID, "model", ref.Model)
			continue
		}
		plates, err := m.deps.Parser.ParseArmorModel(modelPage, ref.Transform)
		if err != nil {
			return fmt.Errorf("parse armor model %s: %w", ref.Model, err)
		}
		hull.Hull.Plates = append(hull.Hull.Plates, plates...)
	}
	hull.Hull.LengthM = parser.HullLength(hull.Hull.Plates)
	return nil
}

// fetchFleet walks every country listing and fetches each linked ship.
// Unsupported classes are skipped, individual fetch failures are logged and
// counted but do not abort the walk.
func (m *Manager) fetchFleet() ([]fleet.Ship, error) {
	var ships []fleet.Ship
	failed := 0
	for _, country := range parser.Countries {
		page, err := m.deps.APIClient.VehiclePage(country)
		if err != nil {
			return nil, fmt.Errorf("fetch country listing %s: %w", country, err)
		}
		ids := m.deps.Parser.ParseShipList(page)
		m.logger().Info("Fetching country", "country", country, "ships", len(ids))

		for _, id := range ids {
			ship, err := m.fetchShip(id, country)
			if errors.Is(err, fleet.ErrUnsupportedClass) {
				continue
			}
			if err != nil {
				m.logger().Error("Fetch failed", "ship", id, "error", err)
				failed++
				continue
			}
			ships = append(ships, *ship)
		}
	}
	if len(ships) == 0 {
		return nil, fmt.Errorf("fleet fetch produced no ships (%d failures)", failed)
	}
	m.logger().Info("Fleet fetched", "ships", len(ships), "failures", failed)
	return ships, nil
}
