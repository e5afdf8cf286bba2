package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/shellfall/engine/v2/internal/armor"
	"github.com/shellfall/engine/v2/internal/geo"
	"github.com/shellfall/engine/v2/internal/worker"
	"github.com/shellfall/engine/v2/pkg/fleet"
	"github.com/shellfall/engine/v2/pkg/gunnery"
)

func runFetch(args []string) error {
	fs := pflag.NewFlagSet("fetch", pflag.ExitOnError)
	commonFlags(fs)
	nation := fs.String("nation", "", "nation tag stamped on directly fetched ships")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setup(fs); err != nil {
		return err
	}

	ids := fs.Args()
	if len(ids) == 0 {
		res, err := dispatch(":FETCH:FLEET:")
		if err != nil {
			return err
		}
		ships, _ := res.([]fleet.Ship)
		fmt.Printf("fetched %d ships\n", len(ships))
		return nil
	}

	for _, id := range ids {
		res, err := dispatch(":FETCH:SHIP:", id, *nation)
		if err != nil {
			return err
		}
		if ship, ok := res.(*fleet.Ship); ok {
			fmt.Printf("fetched %s (%s, tier %d %s)\n", ship.ID, ship.Name, ship.Tier, ship.Class)
		}
	}
	return nil
}

func runShips(args []string) error {
	fs := pflag.NewFlagSet("ships", pflag.ExitOnError)
	commonFlags(fs)
	tier := fs.Int("tier", 0, "only ships of this tier")
	class := fs.String("class", "", "only ships of this class")
	nation := fs.String("nation", "", "only ships of this nation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setup(fs); err != nil {
		return err
	}

	loader, err := fleetLoader()
	if err != nil {
		return err
	}
	ships, err := loader.LoadFleet()
	if err != nil {
		return fmt.Errorf("failed to load fleet snapshot: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tNATION\tCLASS\tTIER\tSHELLS")
	listed := 0
	for _, s := range ships {
		if *tier != 0 && s.Tier != *tier {
			continue
		}
		if *class != "" && string(s.Class) != *class {
			continue
		}
		if *nation != "" && s.Nation != *nation {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			s.ID, s.Name, s.Nation, s.Class, s.Tier, len(s.ShellNames()))
		listed++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d of %d ships\n", listed, len(ships))
	return nil
}

// profileFlags registers the explicit-profile alternative to --ship for the
// commands that only need ballistics, not a stored hull.
func profileFlags(fs *pflag.FlagSet) {
	fs.Float64("caliber", 0, "shell caliber in mm (explicit profile mode)")
	fs.Float64("mass", 0, "shell mass in kg")
	fs.Float64("velocity", 0, "muzzle velocity in m/s")
	fs.Float64("drag", 0.33, "ballistic drag coefficient")
	fs.Float64("krupp", 2400, "Krupp quality factor")
	fs.String("ammo", "AP", "shell type: AP, SAP or HE")
	fs.String("name", "", "shell name for display")
}

// explicitProfile builds a profile from flags. It reports false when the
// flags don't attempt profile mode at all, so callers can fall back to
// --ship with a clean message.
func explicitProfile(fs *pflag.FlagSet) (gunnery.BallisticProfile, bool, error) {
	if !fs.Changed("caliber") && !fs.Changed("mass") && !fs.Changed("velocity") {
		return gunnery.BallisticProfile{}, false, nil
	}
	ammo, _ := fs.GetString("ammo")
	st, err := gunnery.ParseShellType(ammo)
	if err != nil {
		return gunnery.BallisticProfile{}, true, err
	}
	caliber, _ := fs.GetFloat64("caliber")
	mass, _ := fs.GetFloat64("mass")
	velocity, _ := fs.GetFloat64("velocity")
	drag, _ := fs.GetFloat64("drag")
	krupp, _ := fs.GetFloat64("krupp")
	name, _ := fs.GetString("name")
	if name == "" {
		name = fmt.Sprintf("%s %.0fmm", st, caliber)
	}
	p := gunnery.BallisticProfile{
		Name:            name,
		Type:            st,
		CaliberMM:       caliber,
		MassKG:          mass,
		MuzzleVelocity:  velocity,
		DragCoefficient: drag,
		Krupp:           krupp,
	}
	return p, true, p.Validate()
}

func runEvaluate(args []string) error {
	fs := pflag.NewFlagSet("evaluate", pflag.ExitOnError)
	commonFlags(fs)
	profileFlags(fs)
	ship := fs.String("ship", "", "ship id from the fleet snapshot")
	shell := fs.String("shell", "", "shell name; the ship's first shell when empty")
	rangeM := fs.Float64("range", 0, "target range in meters")
	armor := fs.Float64("armor", 0, "target armor thickness in mm")
	obliquity := fs.Float64("obliquity", 0, "target plate obliquity in degrees")
	lat := fs.Float64("lat", 0, "firing position latitude for fall-of-shot output")
	lon := fs.Float64("lon", 0, "firing position longitude for fall-of-shot output")
	bearing := fs.Float64("bearing", 0, "firing bearing in compass degrees")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setup(fs); err != nil {
		return err
	}
	if *rangeM <= 0 {
		return fmt.Errorf("--range must be positive")
	}

	var rec fleet.EngagementRecord
	var profile gunnery.BallisticProfile
	haveProfile := false

	p, explicit, err := explicitProfile(fs)
	if err != nil {
		return err
	}
	switch {
	case explicit:
		query := gunnery.ArmorQuery{ThicknessMM: *armor, ObliquityDeg: *obliquity}
		rep, err := gunnery.EvaluateEngagement(p, *rangeM, query, calibration, workerManager.SolverOptions()...)
		if err != nil {
			return err
		}
		rec = fleet.NewEngagementRecord("", p.Name, query, rep)
		profile, haveProfile = p, true
	case *ship != "":
		res, err := dispatch(":EVALUATE:", *ship,
			*shell,
			formatFloat(*rangeM), formatFloat(*armor), formatFloat(*obliquity))
		if err != nil {
			return err
		}
		rec = res.(fleet.EngagementRecord)
		// The dispatch cached the ship, so the profile is available for
		// plotting without a second storage read.
		if cached, ok := FleetCache.Get(*ship); ok {
			if sh, _, ok := cached.FindShell(rec.Shell); ok {
				profile, haveProfile = sh.Profile(), true
			}
		}
	default:
		return fmt.Errorf("either --ship or an explicit profile (--caliber --mass --velocity) is required")
	}

	printRecord(rec)

	if fs.Changed("lat") && fs.Changed("lon") {
		return printFallOfShot(rec, profile, haveProfile, *lon, *lat, *bearing)
	}
	return nil
}

func printRecord(rec fleet.EngagementRecord) {
	if rec.ShipID != "" {
		fmt.Printf("ship       %s\n", rec.ShipID)
	}
	fmt.Printf("shell      %s\n", rec.Shell)
	fmt.Printf("range      %.0f m  (elevation %.3f deg)\n", rec.RangeM, rec.ElevationDeg)
	fmt.Printf("impact     %.1f m/s at %.2f deg after %.2f s\n",
		rec.ImpactVelocity, rec.ImpactAngleDeg, rec.TimeOfFlightS)
	fmt.Printf("outcome    %s  (effective penetration %.0f mm vs %.0f mm plate at %.0f deg)\n",
		rec.Outcome, rec.EffectivePenetrationMM, rec.TargetThicknessMM, rec.TargetObliquityDeg)
}

// printFallOfShot projects the solved engagement onto the map plane. The
// track needs the profile; without one only the impact point prints.
func printFallOfShot(rec fleet.EngagementRecord, p gunnery.BallisticProfile, haveProfile bool, lon, lat, bearing float64) error {
	origin, err := geo.Coords3857From4326(lon, lat)
	if err != nil {
		return err
	}
	impact, err := geo.FallOfShot(origin, bearing, rec.RangeM)
	if err != nil {
		return err
	}
	fmt.Printf("impact at  %s\n", impact.AsText())

	if !haveProfile {
		return nil
	}
	samples, err := gunnery.FlightPath(p, rec.ElevationDeg, workerManager.SolverOptions()...)
	if err != nil {
		return err
	}
	track, err := geo.TrajectoryTrack(origin, bearing, samples)
	if err != nil {
		return err
	}
	fmt.Printf("track      %s\n", track.AsText())
	return nil
}

func runSweep(args []string) error {
	fs := pflag.NewFlagSet("sweep", pflag.ExitOnError)
	commonFlags(fs)
	ship := fs.String("ship", "", "ship id from the fleet snapshot")
	shell := fs.String("shell", "", "shell name; the ship's first shell when empty")
	from := fs.Float64("from", 5000, "sweep start range in meters")
	to := fs.Float64("to", 25000, "sweep end range in meters")
	step := fs.Float64("step", 0, "range step in meters; configured default when 0")
	armor := fs.Float64("armor", 0, "target armor thickness in mm")
	obliquity := fs.Float64("obliquity", 0, "target plate obliquity in degrees")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setup(fs); err != nil {
		return err
	}
	if *ship == "" {
		return fmt.Errorf("--ship is required")
	}

	if err := monitorService.Start(); err != nil {
		Logger.Warn("Status monitor failed to start", "error", err)
	}
	res, err := dispatch(":SWEEP:", *ship, *shell,
		formatFloat(*from), formatFloat(*to), formatFloat(*step),
		formatFloat(*armor), formatFloat(*obliquity))
	monitorService.Stop()
	if err != nil {
		return err
	}

	run := res.(*fleet.SweepRun)
	fmt.Printf("swept %s / %s: %d points from %.0f m to %.0f m (%d unreachable) in %s\n",
		run.ShipID, run.Shell, run.Points, run.StartRangeM, run.EndRangeM,
		run.Unreachable, run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	return nil
}

func runMaxRange(args []string) error {
	fs := pflag.NewFlagSet("maxrange", pflag.ExitOnError)
	commonFlags(fs)
	profileFlags(fs)
	ship := fs.String("ship", "", "ship id from the fleet snapshot")
	shell := fs.String("shell", "", "shell name; the ship's first shell when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setup(fs); err != nil {
		return err
	}

	p, explicit, err := explicitProfile(fs)
	if err != nil {
		return err
	}
	if explicit {
		rangeM, elevationDeg, err := gunnery.MaxRange(p, workerManager.SolverOptions()...)
		if err != nil {
			return err
		}
		fmt.Printf("%s: maximum range %.0f m at %.3f deg\n", p.Name, rangeM, elevationDeg)
		return nil
	}
	if *ship == "" {
		return fmt.Errorf("either --ship or an explicit profile (--caliber --mass --velocity) is required")
	}
	res, err := dispatch(":MAXRANGE:", *ship, *shell)
	if err != nil {
		return err
	}
	mr := res.(worker.MaxRangeResult)
	fmt.Printf("maximum range %.0f m at %.3f deg\n", mr.RangeM, mr.ElevationDeg)
	return nil
}

func runAttack(args []string) error {
	fs := pflag.NewFlagSet("attack", pflag.ExitOnError)
	commonFlags(fs)
	ship := fs.String("ship", "", "attacking ship id")
	shell := fs.String("shell", "", "shell name; the ship's first shell when empty")
	target := fs.String("target", "", "target ship id")
	rangeM := fs.Float64("range", 0, "firing range in meters")
	azimuth := fs.Float64("azimuth", 90, "bearing the fire arrives from, off the target's bow")
	seed := fs.Int64("seed", 0, "dispersion seed; omit for a dead-center shot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setup(fs); err != nil {
		return err
	}
	if *ship == "" || *target == "" {
		return fmt.Errorf("--ship and --target are required")
	}
	if *rangeM <= 0 {
		return fmt.Errorf("--range must be positive")
	}

	eventArgs := []string{*ship, *shell, *target, formatFloat(*rangeM), formatFloat(*azimuth)}
	if fs.Changed("seed") {
		eventArgs = append(eventArgs, strconv.FormatInt(*seed, 10))
	}
	res, err := dispatch(":ATTACK:", eventArgs...)
	if err != nil {
		return err
	}

	atk := res.(armor.AttackResult)
	fmt.Printf("impact     %.1f m/s at %.2f deg, carrying %.0f mm of penetration\n",
		atk.Impact.Velocity, atk.Impact.AngleDeg, atk.PenetrationMM)
	fmt.Printf("result     %s through %d plates, %.0f damage\n",
		atk.Kind, atk.PlatesHit, atk.Damage)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
