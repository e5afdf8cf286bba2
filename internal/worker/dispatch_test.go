package worker

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shellfall/engine/v2/internal/armor"
	"github.com/shellfall/engine/v2/internal/cache"
	"github.com/shellfall/engine/v2/internal/config"
	"github.com/shellfall/engine/v2/internal/dispatcher"
	"github.com/shellfall/engine/v2/internal/session"
	"github.com/shellfall/engine/v2/internal/storage"
	"github.com/shellfall/engine/v2/pkg/fleet"
	"github.com/shellfall/engine/v2/pkg/gunnery"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu sync.Mutex

	ships       []*fleet.Ship
	runsStarted []*fleet.SweepRun
	runsEnded   []*fleet.SweepRun
	engagements []*fleet.EngagementRecord
	initCalled  bool
	closeCalled bool
}

func (b *mockBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initCalled = true
	return nil
}

func (b *mockBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCalled = true
	return nil
}

func (b *mockBackend) SaveShip(s *fleet.Ship) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ships = append(b.ships, s)
	return nil
}

func (b *mockBackend) StartRun(run *fleet.SweepRun) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runsStarted = append(b.runsStarted, run)
	return nil
}

func (b *mockBackend) EndRun(run *fleet.SweepRun) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runsEnded = append(b.runsEnded, run)
	return nil
}

func (b *mockBackend) RecordEngagement(e *fleet.EngagementRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.engagements = append(b.engagements, e)
	return nil
}

// loaderBackend adds the snapshot-loading interface on top of mockBackend.
type loaderBackend struct {
	mockBackend
	stored map[string]fleet.Ship
}

func (b *loaderBackend) LoadShip(gameID string) (*fleet.Ship, error) {
	if s, ok := b.stored[gameID]; ok {
		return &s, nil
	}
	return nil, fleet.ErrShipNotFound
}

func (b *loaderBackend) LoadFleet() ([]fleet.Ship, error) {
	ships := make([]fleet.Ship, 0, len(b.stored))
	for _, s := range b.stored {
		ships = append(ships, s)
	}
	return ships, nil
}

// flatCalibration pins AP penetration to one caliber of steel regardless of
// impact velocity, so handler verdicts don't hang on integrator details.
func flatCalibration() gunnery.Calibration {
	entry := gunnery.DefaultCalibration().ForType(gunnery.AP)
	entry.CaliberFraction = 1
	return gunnery.Calibration{gunnery.AP: entry}
}

func testShells() []fleet.Shell {
	return []fleet.Shell{
		{
			Name:                 "406 mm AP",
			AmmoType:             "AP",
			CaliberMM:            406,
			MassKG:               1225,
			MuzzleVelocity:       762,
			DragCoefficient:      0.35,
			Krupp:                2400,
			AlphaDamage:          12600,
			DetonatorS:           0.033,
			DetonatorThresholdMM: 68,
		},
		{
			Name:            "406 mm HE",
			AmmoType:        "HE",
			CaliberMM:       406,
			MassKG:          870,
			MuzzleVelocity:  803,
			DragCoefficient: 0.35,
			AlphaDamage:     5700,
			HEPiercingMM:    68,
		},
	}
}

// boxPlates converts a box mesh into the parsed-plate form ship fixtures
// carry.
func boxPlates(lengthZ, beamX, heightY, thicknessMM float64, materialID int) []fleet.ArmorPlate {
	faces := armor.Box(lengthZ, beamX, heightY, thicknessMM, armor.KindFromMaterialID(materialID))
	plates := make([]fleet.ArmorPlate, 0, len(faces))
	for _, f := range faces {
		plates = append(plates, fleet.ArmorPlate{
			Vertices: [3][3]float64{
				{f.A.X, f.A.Y, f.A.Z},
				{f.B.X, f.B.Y, f.B.Z},
				{f.C.X, f.C.Y, f.C.Z},
			},
			ThicknessMM: thicknessMM,
			MaterialID:  materialID,
		})
	}
	return plates
}

// testShip builds an armed, thin-skinned battleship. The 25 mm plating is
// overmatched by the 406 mm gun, so attack verdicts hold for any plausible
// fall angle.
func testShip(id string) fleet.Ship {
	return fleet.Ship{
		ID:     id,
		Name:   "Testlandia",
		Nation: "usa",
		Class:  fleet.Battleship,
		Tier:   8,
		Hulls: []fleet.HullConfiguration{{
			Name:    id + " (A)",
			SpeedMS: 15,
			LengthM: 200,
			Battery: []fleet.Battery{{
				Dispersion: fleet.DispersionSpec{HorizontalM: 210, VerticalM: 140, MaxRangeM: 26630, Sigma: 2.1},
				Guns:       []fleet.Gun{{Name: "turret", Shells: testShells()}},
			}},
			Plates: boxPlates(200, 30, 20, 25, 0),
		}},
	}
}

func newTestDispatcher(t *testing.T) (*dispatcher.Dispatcher, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}

	d, err := dispatcher.New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	return d, logger
}

// newTestManager wires a manager around an empty cache and deterministic
// calibration. The backend may be nil.
func newTestManager(t *testing.T, backend storage.Backend) (*Manager, *cache.FleetCache) {
	t.Helper()
	fleetCache := cache.NewFleetCache()
	deps := Dependencies{
		FleetCache:  fleetCache,
		Session:     session.NewContext(),
		Calibration: flatCalibration(),
		Sweep:       config.SweepConfig{Step: 500, Workers: 2},
	}
	return NewManager(deps, backend), fleetCache
}

func TestRegisterHandlers_RegistersAllCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, _ := newTestManager(t, nil)
	manager.RegisterHandlers(d)

	expectedCommands := []string{
		":FETCH:SHIP:",
		":FETCH:FLEET:",
		":EVALUATE:",
		":SWEEP:",
		":MAXRANGE:",
		":ATTACK:",
	}

	for _, cmd := range expectedCommands {
		if !d.HasHandler(cmd) {
			t.Errorf("expected handler for %s to be registered", cmd)
		}
	}
}

func TestNewManager(t *testing.T) {
	manager, _ := newTestManager(t, nil)
	if manager.hasBackend() {
		t.Error("expected no backend initially")
	}

	withBackend, _ := newTestManager(t, &mockBackend{})
	if !withBackend.hasBackend() {
		t.Error("expected backend to be set")
	}
}

func TestHandleEvaluate(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, nil)
	manager.RegisterHandlers(d)
	fleetCache.Add(testShip("PASB001"))

	result, err := d.Dispatch(dispatcher.Event{
		Command: ":EVALUATE:",
		Args:    []string{"PASB001", "406 mm AP", "5000", "300", "0"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, ok := result.(fleet.EngagementRecord)
	if !ok {
		t.Fatalf("expected an engagement record, got %T", result)
	}
	if rec.Outcome != "penetration" {
		t.Errorf("expected 406 mm to defeat 300 mm at 5 km, got %s", rec.Outcome)
	}
	if rec.ShipID != "PASB001" || rec.Shell != "406 mm AP" {
		t.Errorf("record misattributed: ship %s shell %s", rec.ShipID, rec.Shell)
	}
	if rec.RangeM != 5000 || rec.TargetThicknessMM != 300 {
		t.Errorf("query did not round-trip: range %f thickness %f", rec.RangeM, rec.TargetThicknessMM)
	}
	if rec.ImpactVelocity <= 0 || rec.ImpactVelocity >= 762 {
		t.Errorf("implausible impact velocity %f m/s", rec.ImpactVelocity)
	}
	if rec.EvaluatedAt.IsZero() {
		t.Error("expected the record to be timestamped")
	}
}

func TestHandleEvaluate_DefaultsToFirstShell(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, nil)
	manager.RegisterHandlers(d)
	fleetCache.Add(testShip("PASB001"))

	result, err := d.Dispatch(dispatcher.Event{
		Command: ":EVALUATE:",
		Args:    []string{"PASB001", "", "5000", "300", "0"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec := result.(fleet.EngagementRecord); rec.Shell != "406 mm AP" {
		t.Errorf("expected the main battery's first shell, got %s", rec.Shell)
	}
}

func TestHandleEvaluate_UnknownShell(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, nil)
	manager.RegisterHandlers(d)
	fleetCache.Add(testShip("PASB001"))

	_, err := d.Dispatch(dispatcher.Event{
		Command: ":EVALUATE:",
		Args:    []string{"PASB001", "203 mm SAP", "5000", "300", "0"},
	})
	if !errors.Is(err, ErrNoSuchShell) {
		t.Fatalf("expected ErrNoSuchShell, got %v", err)
	}
	if !strings.Contains(err.Error(), "406 mm AP") {
		t.Errorf("expected the error to list the carried shells, got %v", err)
	}
}

func TestHandleEvaluate_ShipNotLoaded(t *testing.T) {
	d, _ := newTestDispatcher(t)
	// A plain mock backend has no snapshot to fall back to.
	manager, _ := newTestManager(t, &mockBackend{})
	manager.RegisterHandlers(d)

	_, err := d.Dispatch(dispatcher.Event{
		Command: ":EVALUATE:",
		Args:    []string{"GHOST", "", "5000", "300", "0"},
	})
	if !errors.Is(err, ErrShipNotLoaded) {
		t.Fatalf("expected ErrShipNotLoaded, got %v", err)
	}
}

func TestHandleEvaluate_BadArgs(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, _ := newTestManager(t, nil)
	manager.RegisterHandlers(d)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, "missing ship id"},
		{"missing range", []string{"PASB001", ""}, "missing range"},
		{"bad range", []string{"PASB001", "", "soon", "300", "0"}, "bad range"},
		{"missing thickness", []string{"PASB001", "", "5000"}, "missing target thickness"},
		{"bad obliquity", []string{"PASB001", "", "5000", "300", "steep"}, "bad target obliquity"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Dispatch(dispatcher.Event{Command: ":EVALUATE:", Args: tc.args})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestHandleMaxRange(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, nil)
	manager.RegisterHandlers(d)
	fleetCache.Add(testShip("PASB001"))

	result, err := d.Dispatch(dispatcher.Event{
		Command: ":MAXRANGE:",
		Args:    []string{"PASB001"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, ok := result.(MaxRangeResult)
	if !ok {
		t.Fatalf("expected a max range result, got %T", result)
	}
	if res.RangeM < 20000 || res.RangeM > 60000 {
		t.Errorf("implausible maximum range %f m", res.RangeM)
	}
	if res.ElevationDeg < 30 || res.ElevationDeg > 60 {
		t.Errorf("implausible apex elevation %f degrees", res.ElevationDeg)
	}
}

func TestHandleSweep_WritesRunToBackend(t *testing.T) {
	backend := &mockBackend{}
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, backend)
	manager.RegisterHandlers(d)
	fleetCache.Add(testShip("PASB001"))

	result, err := d.Dispatch(dispatcher.Event{
		Command: ":SWEEP:",
		Args:    []string{"PASB001", "406 mm AP", "5000", "6000", "500", "300", "0"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run, ok := result.(*fleet.SweepRun)
	if !ok {
		t.Fatalf("expected a sweep run, got %T", result)
	}
	if run.Points != 3 {
		t.Errorf("expected 3 points, got %d", run.Points)
	}
	if run.Unreachable != 0 {
		t.Errorf("expected every point reachable, got %d unreachable", run.Unreachable)
	}
	if run.CompletedAt.IsZero() {
		t.Error("expected the run to be stamped complete")
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.runsStarted) != 1 || len(backend.runsEnded) != 1 {
		t.Fatalf("expected 1 run started and ended, got %d/%d", len(backend.runsStarted), len(backend.runsEnded))
	}
	if len(backend.engagements) != 3 {
		t.Fatalf("expected 3 engagements in backend, got %d", len(backend.engagements))
	}
	for i, want := range []float64{5000, 5500, 6000} {
		if got := backend.engagements[i].RangeM; got != want {
			t.Errorf("record %d at %f m, want %f m", i, got, want)
		}
		if outcome := backend.engagements[i].Outcome; outcome != "penetration" {
			t.Errorf("record %d outcome %s, want penetration", i, outcome)
		}
	}
}

func TestHandleAttack_OvermatchedPlating(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, nil)
	manager.RegisterHandlers(d)
	fleetCache.Add(testShip("PASB001"))
	fleetCache.Add(testShip("PJSB018"))

	result, err := d.Dispatch(dispatcher.Event{
		Command: ":ATTACK:",
		Args:    []string{"PASB001", "406 mm AP", "PJSB018", "5000", "90", ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, ok := result.(armor.AttackResult)
	if !ok {
		t.Fatalf("expected an attack result, got %T", result)
	}
	if res.Kind != armor.OverPenetration {
		t.Fatalf("expected the shell to sail through 25 mm plating, got %v", res.Kind)
	}
	if res.Damage != 1260 {
		t.Errorf("expected a tenth of alpha, got %f", res.Damage)
	}
	if res.PlatesHit != 2 {
		t.Errorf("expected entry and exit plates, got %d", res.PlatesHit)
	}
	if res.AimPoint != (armor.Vec3{}) {
		t.Errorf("expected a dead-center aim without a seed, got %+v", res.AimPoint)
	}
}

func TestHandleAttack_SeededDispersionShiftsAim(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, nil)
	manager.RegisterHandlers(d)
	fleetCache.Add(testShip("PASB001"))
	fleetCache.Add(testShip("PJSB018"))

	args := []string{"PASB001", "", "PJSB018", "5000", "90", "7"}
	result, err := d.Dispatch(dispatcher.Event{Command: ":ATTACK:", Args: args})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := result.(armor.AttackResult)
	if res.AimPoint.X == 0 && res.AimPoint.Z == 0 {
		t.Error("expected the seeded sample to shift the aim point")
	}

	// Same seed, same fall of shot.
	again, err := d.Dispatch(dispatcher.Event{Command: ":ATTACK:", Args: args})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.(armor.AttackResult).AimPoint != res.AimPoint {
		t.Error("expected the same seed to reproduce the aim point")
	}
}

func TestHandleAttack_BadSeed(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, nil)
	manager.RegisterHandlers(d)
	fleetCache.Add(testShip("PASB001"))
	fleetCache.Add(testShip("PJSB018"))

	_, err := d.Dispatch(dispatcher.Event{
		Command: ":ATTACK:",
		Args:    []string{"PASB001", "", "PJSB018", "5000", "90", "tomorrow"},
	})
	if err == nil || !strings.Contains(err.Error(), "bad seed argument") {
		t.Errorf("expected a seed parse error, got %v", err)
	}
}

func TestHandleAttack_TargetWithoutArmor(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, nil)
	manager.RegisterHandlers(d)
	fleetCache.Add(testShip("PASB001"))

	unarmored := testShip("PGSD101")
	unarmored.Hulls[0].Plates = nil
	fleetCache.Add(unarmored)

	_, err := d.Dispatch(dispatcher.Event{
		Command: ":ATTACK:",
		Args:    []string{"PASB001", "", "PGSD101", "5000", "90", ""},
	})
	if err == nil || !strings.Contains(err.Error(), "no armor model") {
		t.Errorf("expected an armor model error, got %v", err)
	}
}

func TestResolveShip_FallsBackToSnapshot(t *testing.T) {
	backend := &loaderBackend{stored: map[string]fleet.Ship{"PASB001": testShip("PASB001")}}
	d, _ := newTestDispatcher(t)
	manager, fleetCache := newTestManager(t, backend)
	manager.RegisterHandlers(d)

	// The cache starts empty; the handler must load from the snapshot.
	_, err := d.Dispatch(dispatcher.Event{Command: ":MAXRANGE:", Args: []string{"PASB001"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fleetCache.Get("PASB001"); !ok {
		t.Error("expected the loaded ship to be cached for the next lookup")
	}
}

func TestHandleFetchShip_MissingArg(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager, _ := newTestManager(t, nil)
	manager.RegisterHandlers(d)

	_, err := d.Dispatch(dispatcher.Event{Command: ":FETCH:SHIP:", Args: nil})
	if err == nil || !strings.Contains(err.Error(), "missing ship id") {
		t.Errorf("expected a missing argument error, got %v", err)
	}
}
