// internal/storage/memory/memory_test.go
package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shellfall/engine/v2/internal/config"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

func testShip(id, name string) *fleet.Ship {
	return &fleet.Ship{
		ID:     id,
		Name:   name,
		Nation: "japan",
		Class:  fleet.Battleship,
		Tier:   10,
		Hulls: []fleet.HullConfiguration{
			{
				Name:    "A_Hull",
				SpeedMS: 13.9,
				LengthM: 263,
			},
		},
	}
}

func testRun() *fleet.SweepRun {
	return &fleet.SweepRun{
		ShipID:             "PJSB018",
		Shell:              "Type91",
		StartRangeM:        5000,
		EndRangeM:          20000,
		StepM:              500,
		TargetThicknessMM:  300,
		TargetObliquityDeg: 0,
		StartedAt:          time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
	}
}

func testEngagement(rangeM float64) *fleet.EngagementRecord {
	return &fleet.EngagementRecord{
		ShipID:                 "PJSB018",
		Shell:                  "Type91",
		RangeM:                 rangeM,
		ElevationDeg:           4.2,
		ImpactVelocity:         610,
		ImpactAngleDeg:         8.1,
		TimeOfFlightS:          9.4,
		Outcome:                "Penetration",
		EffectivePenetrationMM: 580,
		TargetThicknessMM:      300,
		EvaluatedAt:            time.Date(2024, 3, 15, 14, 30, 5, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	cfg := config.MemoryConfig{
		OutputDir:      "/tmp/test",
		CompressOutput: true,
	}
	b := New(cfg)

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.OutputDir != "/tmp/test" {
		t.Errorf("expected OutputDir=/tmp/test, got %s", b.cfg.OutputDir)
	}
	if !b.cfg.CompressOutput {
		t.Error("expected CompressOutput=true")
	}
	if b.ships == nil {
		t.Error("ships map not initialized")
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestSaveShip(t *testing.T) {
	b := New(config.MemoryConfig{})

	ship := testShip("PJSB018", "Yamato")
	if err := b.SaveShip(ship); err != nil {
		t.Fatalf("SaveShip failed: %v", err)
	}

	// Backend keeps its own copy
	ship.Name = "mutated"

	got, err := b.LoadShip("PJSB018")
	if err != nil {
		t.Fatalf("LoadShip failed: %v", err)
	}
	if got.Name != "Yamato" {
		t.Errorf("expected Name=Yamato, got %s", got.Name)
	}
}

func TestSaveShipReplacesEarlierFetch(t *testing.T) {
	b := New(config.MemoryConfig{})

	_ = b.SaveShip(testShip("PJSB018", "Yamato"))
	_ = b.SaveShip(testShip("PJSB018", "Yamato (refit)"))

	got, err := b.LoadShip("PJSB018")
	if err != nil {
		t.Fatalf("LoadShip failed: %v", err)
	}
	if got.Name != "Yamato (refit)" {
		t.Errorf("expected refit to win, got %s", got.Name)
	}

	fleetShips, err := b.LoadFleet()
	if err != nil {
		t.Fatalf("LoadFleet failed: %v", err)
	}
	if len(fleetShips) != 1 {
		t.Errorf("expected 1 ship in fleet, got %d", len(fleetShips))
	}
}

func TestLoadShipNotFound(t *testing.T) {
	b := New(config.MemoryConfig{})

	_, err := b.LoadShip("PJSB018")
	if err == nil {
		t.Fatal("expected error for unknown ship")
	}
	if !errors.Is(err, fleet.ErrShipNotFound) {
		t.Errorf("expected ErrShipNotFound, got %v", err)
	}
}

func TestLoadFleetSorted(t *testing.T) {
	b := New(config.MemoryConfig{})

	_ = b.SaveShip(testShip("PJSB018", "Yamato"))
	_ = b.SaveShip(testShip("PASB008", "Montana"))
	_ = b.SaveShip(testShip("PGSB109", "Kurfuerst"))

	ships, err := b.LoadFleet()
	if err != nil {
		t.Fatalf("LoadFleet failed: %v", err)
	}
	if len(ships) != 3 {
		t.Fatalf("expected 3 ships, got %d", len(ships))
	}
	if ships[0].ID != "PASB008" || ships[1].ID != "PGSB109" || ships[2].ID != "PJSB018" {
		t.Errorf("fleet not sorted by game ID: %s, %s, %s", ships[0].ID, ships[1].ID, ships[2].ID)
	}
}

func TestRecordEngagement(t *testing.T) {
	b := New(config.MemoryConfig{})

	_ = b.StartRun(testRun())
	if err := b.RecordEngagement(testEngagement(5000)); err != nil {
		t.Fatalf("RecordEngagement failed: %v", err)
	}
	if err := b.RecordEngagement(testEngagement(5500)); err != nil {
		t.Fatalf("RecordEngagement failed: %v", err)
	}

	if len(b.engagements) != 2 {
		t.Errorf("expected 2 engagements, got %d", len(b.engagements))
	}
}

func TestStartRunResetsEngagements(t *testing.T) {
	b := New(config.MemoryConfig{})

	_ = b.StartRun(testRun())
	_ = b.RecordEngagement(testEngagement(5000))

	if err := b.StartRun(testRun()); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if len(b.engagements) != 0 {
		t.Errorf("expected engagements reset, got %d", len(b.engagements))
	}
}

func TestEndRunWithoutStartRun(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	if err := b.EndRun(testRun()); err == nil {
		t.Error("expected error ending a run that was never started")
	}
}

func TestGetExportedFilePath(t *testing.T) {
	b := New(config.MemoryConfig{})

	if path := b.GetExportedFilePath(); path != "" {
		t.Errorf("expected empty export path before any run, got %s", path)
	}
}

func TestStartRunResetsExportPath(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	run := testRun()
	_ = b.StartRun(run)
	_ = b.RecordEngagement(testEngagement(5000))
	run.CompletedAt = run.StartedAt.Add(2 * time.Second)
	run.Points = 1
	if err := b.EndRun(run); err != nil {
		t.Fatalf("EndRun failed: %v", err)
	}
	if b.GetExportedFilePath() == "" {
		t.Fatal("expected export path after EndRun")
	}

	_ = b.StartRun(testRun())
	if path := b.GetExportedFilePath(); path != "" {
		t.Errorf("expected export path reset by StartRun, got %s", path)
	}
}

func TestConcurrentAccess(t *testing.T) {
	b := New(config.MemoryConfig{})
	_ = b.StartRun(testRun())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = b.SaveShip(testShip(fmt.Sprintf("PJSB%03d", n), "Ship"))
		}(i)
		go func(n int) {
			defer wg.Done()
			_ = b.RecordEngagement(testEngagement(5000 + float64(n)*500))
		}(i)
	}
	wg.Wait()

	ships, err := b.LoadFleet()
	if err != nil {
		t.Fatalf("LoadFleet failed: %v", err)
	}
	if len(ships) != 10 {
		t.Errorf("expected 10 ships, got %d", len(ships))
	}
	if len(b.engagements) != 10 {
		t.Errorf("expected 10 engagements, got %d", len(b.engagements))
	}
}
