// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shellfall/engine/v2/internal/queue"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// fleetFileName is the snapshot written next to the run exports. A ".gz"
// suffix is appended when compression is on.
const fleetFileName = "fleet.json"

// RunExport is the root JSON structure of an exported sweep run.
type RunExport struct {
	EngineVersion string `json:"engineVersion"`
	Ship          string `json:"ship"`
	Shell         string `json:"shell"`

	StartRangeM float64 `json:"startRangeM"`
	EndRangeM   float64 `json:"endRangeM"`
	StepM       float64 `json:"stepM"`

	TargetThicknessMM  float64 `json:"targetThicknessMm"`
	TargetObliquityDeg float64 `json:"targetObliquityDeg"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	Points      int `json:"points"`
	Unreachable int `json:"unreachable"`

	// Rows holds one entry per range step:
	// [rangeM, elevationDeg, impactVelocity, impactAngleDeg, timeOfFlightS, outcome, effectivePenetrationMm]
	Rows [][]any `json:"rows"`
}

// fleetFile is the JSON structure of the persisted fleet snapshot.
type fleetFile struct {
	SavedAt time.Time    `json:"savedAt"`
	Ships   []fleet.Ship `json:"ships"`
}

func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	ship := sanitizeName(b.run.ShipID)
	shell := sanitizeName(b.run.Shell)
	timestamp := b.run.StartedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s_%s.json.gz", ship, shell, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s_%s.json", ship, shell, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		EngineVersion:      "2.0.0",
		Ship:               b.run.ShipID,
		Shell:              b.run.Shell,
		StartRangeM:        b.run.StartRangeM,
		EndRangeM:          b.run.EndRangeM,
		StepM:              b.run.StepM,
		TargetThicknessMM:  b.run.TargetThicknessMM,
		TargetObliquityDeg: b.run.TargetObliquityDeg,
		StartedAt:          b.run.StartedAt,
		CompletedAt:        b.run.CompletedAt,
		Points:             b.run.Points,
		Unreachable:        b.run.Unreachable,
		Rows:               make([][]any, 0, len(b.engagements)),
	}

	// Rows come out ordered by range step no matter how the workers
	// interleaved them. Without a step size (single evaluations replayed
	// through a run) record order is kept.
	states := queue.NewSweepStatesMap()
	endStep := uint(0)
	for i, e := range b.engagements {
		step := uint(i)
		if b.run.StepM > 0 {
			step = rangeStep(b.run.StartRangeM, b.run.StepM, e.RangeM)
		}
		if step > endStep {
			endStep = step
		}
		states.Set(step, engagementRow(e))
	}
	if states.Len() == 0 {
		return export
	}

	for i := uint(0); i <= endStep; i++ {
		row, err := states.GetStateAtStep(i, endStep)
		if err != nil {
			continue
		}
		export.Rows = append(export.Rows, row)
	}
	return export
}

func engagementRow(e fleet.EngagementRecord) []any {
	return []any{
		e.RangeM,
		e.ElevationDeg,
		e.ImpactVelocity,
		e.ImpactAngleDeg,
		e.TimeOfFlightS,
		e.Outcome,
		e.EffectivePenetrationMM,
	}
}

func rangeStep(startRangeM, stepM, rangeM float64) uint {
	step := math.Round((rangeM - startRangeM) / stepM)
	if step < 0 {
		return 0
	}
	return uint(step)
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	return name
}

func (b *Backend) writeFleetFile() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file := fleetFile{SavedAt: time.Now()}
	for _, s := range b.ships {
		file.Ships = append(file.Ships, *s)
	}
	sort.Slice(file.Ships, func(i, j int) bool {
		return file.Ships[i].ID < file.Ships[j].ID
	})

	path := filepath.Join(b.cfg.OutputDir, fleetFileName)
	if b.cfg.CompressOutput {
		return b.writeGzipJSON(path+".gz", file)
	}
	return b.writeJSON(path, file)
}

// loadFleetFile restores the snapshot written by an earlier invocation.
// Both the compressed and plain variants are tried so toggling compression
// does not orphan the snapshot. A missing file is not an error.
func (b *Backend) loadFleetFile() error {
	paths := []string{
		filepath.Join(b.cfg.OutputDir, fleetFileName+".gz"),
		filepath.Join(b.cfg.OutputDir, fleetFileName),
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		file, err := readFleetFile(path)
		if err != nil {
			return err
		}
		for i := range file.Ships {
			ship := file.Ships[i]
			b.ships[ship.ID] = &ship
		}
		return nil
	}
	return nil
}

func readFleetFile(path string) (fleetFile, error) {
	var file fleetFile

	f, err := os.Open(path)
	if err != nil {
		return file, fmt.Errorf("failed to open fleet file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return file, fmt.Errorf("failed to read fleet file: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return file, fmt.Errorf("failed to decode fleet file: %w", err)
	}
	return file, nil
}

func (b *Backend) writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
