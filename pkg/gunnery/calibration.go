package gunnery

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ShellCalibration is one shell type's empirical constant set. The values
// come from published game ballistics, not from first principles; treat them
// as configuration.
type ShellCalibration struct {
	// PenetrationScale and ReferenceKrupp anchor the armor-piercing formula
	//
	//	scale * (krupp/referenceKrupp) * v^velExp * m^massExp / caliber^calExp
	//
	// with velocity in m/s, mass in kg and caliber in mm.
	PenetrationScale float64 `yaml:"penetrationScale"`
	ReferenceKrupp   float64 `yaml:"referenceKrupp"`
	VelocityExponent float64 `yaml:"velocityExponent"`
	MassExponent     float64 `yaml:"massExponent"`
	CaliberExponent  float64 `yaml:"caliberExponent"`

	// CaliberFraction, when set, bypasses the formula entirely: penetration
	// is a flat fraction of caliber. This is the high-explosive branch.
	CaliberFraction float64 `yaml:"caliberFraction"`

	// RicochetDeg is the effective angle from the plate normal beyond which
	// the shell deflects. RicochetLowerDeg marks where deflection first
	// becomes possible and is carried for reporting; classification keys on
	// RicochetDeg alone so the transition stays a single threshold.
	RicochetDeg      float64 `yaml:"ricochetDeg"`
	RicochetLowerDeg float64 `yaml:"ricochetLowerDeg"`

	// NormalizationDeg is subtracted from the effective angle before the
	// cosine adjustment, modelling the cap biting into the plate.
	NormalizationDeg float64 `yaml:"normalizationDeg"`

	// ArmingVelocity is the fuze arming threshold in m/s; slower impacts
	// shatter.
	ArmingVelocity float64 `yaml:"armingVelocity"`

	// OvermatchRatio: a caliber of at least ratio times the plate thickness
	// penetrates regardless of angle. Zero disables overmatch.
	OvermatchRatio float64 `yaml:"overmatchRatio"`
}

// Calibration maps shell types to their constant sets. A nil Calibration is
// valid and means the stock table. Tables are read-only after load and safe
// to share across concurrent evaluations.
type Calibration map[ShellType]ShellCalibration

// DefaultCalibration returns the stock constants.
func DefaultCalibration() Calibration {
	return Calibration{
		AP: {
			PenetrationScale: 0.5561613,
			ReferenceKrupp:   2400,
			VelocityExponent: 1.1,
			MassExponent:     0.55,
			CaliberExponent:  0.65,
			RicochetDeg:      60,
			RicochetLowerDeg: 45,
			NormalizationDeg: 6,
			ArmingVelocity:   125,
			OvermatchRatio:   14.3,
		},
		SAP: {
			PenetrationScale: 0.5561613,
			ReferenceKrupp:   2400,
			VelocityExponent: 1.1,
			MassExponent:     0.55,
			CaliberExponent:  0.65,
			RicochetDeg:      80,
			RicochetLowerDeg: 70,
			NormalizationDeg: 6,
			ArmingVelocity:   100,
			OvermatchRatio:   14.3,
		},
		HE: {
			CaliberFraction: 1.0 / 6.0,
			// Effective angles clamp to 90, so HE never deflects.
			RicochetDeg:      90,
			NormalizationDeg: 8,
			ArmingVelocity:   80,
			OvermatchRatio:   14.3,
		},
	}
}

// ForType looks up the entry for a shell type, falling back to the stock
// constants when the table is nil or missing the type.
func (c Calibration) ForType(t ShellType) ShellCalibration {
	if entry, ok := c[t]; ok {
		return entry
	}
	defaults := DefaultCalibration()
	if entry, ok := defaults[t]; ok {
		return entry
	}
	return defaults[AP]
}

// LoadCalibration reads a YAML calibration file and merges it over the stock
// table.
func LoadCalibration(path string) (Calibration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}
	cal, err := ParseCalibration(raw)
	if err != nil {
		return nil, fmt.Errorf("calibration file %s: %w", path, err)
	}
	return cal, nil
}

// ParseCalibration merges YAML calibration data over DefaultCalibration.
// Entries are keyed by shell type name; zero fields inside an entry inherit
// the stock value, so partial overrides stay safe.
func ParseCalibration(data []byte) (Calibration, error) {
	byName := map[string]ShellCalibration{}
	if err := yaml.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("parse calibration yaml: %w", err)
	}
	cal := DefaultCalibration()
	for name, entry := range byName {
		t, err := ParseShellType(name)
		if err != nil {
			return nil, fmt.Errorf("calibration entry: %w", err)
		}
		cal[t] = mergeCalibration(cal.ForType(t), entry)
	}
	return cal, nil
}

func mergeCalibration(base, override ShellCalibration) ShellCalibration {
	out := base
	if override.PenetrationScale != 0 {
		out.PenetrationScale = override.PenetrationScale
	}
	if override.ReferenceKrupp != 0 {
		out.ReferenceKrupp = override.ReferenceKrupp
	}
	if override.VelocityExponent != 0 {
		out.VelocityExponent = override.VelocityExponent
	}
	if override.MassExponent != 0 {
		out.MassExponent = override.MassExponent
	}
	if override.CaliberExponent != 0 {
		out.CaliberExponent = override.CaliberExponent
	}
	if override.CaliberFraction != 0 {
		out.CaliberFraction = override.CaliberFraction
	}
	if override.RicochetDeg != 0 {
		out.RicochetDeg = override.RicochetDeg
	}
	if override.RicochetLowerDeg != 0 {
		out.RicochetLowerDeg = override.RicochetLowerDeg
	}
	if override.NormalizationDeg != 0 {
		out.NormalizationDeg = override.NormalizationDeg
	}
	if override.ArmingVelocity != 0 {
		out.ArmingVelocity = override.ArmingVelocity
	}
	if override.OvermatchRatio != 0 {
		out.OvermatchRatio = override.OvermatchRatio
	}
	return out
}
