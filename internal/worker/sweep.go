package worker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shellfall/engine/v2/internal/channel"
	"github.com/shellfall/engine/v2/internal/influx"
	"github.com/shellfall/engine/v2/internal/queue"
	"github.com/shellfall/engine/v2/pkg/fleet"
	"github.com/shellfall/engine/v2/pkg/gunnery"
)

// OutcomeUnreachable marks sweep points beyond the gun's reach. Reachable
// points carry the classifier's outcome instead.
const OutcomeUnreachable = "Unreachable"

// RunSweep solves every range step of the run across the worker pool and
// flushes the records to storage in range order. The run's Points,
// Unreachable and CompletedAt fields are filled in before EndRun. A
// cancelled context stops solving but still flushes what was solved.
func (m *Manager) RunSweep(ctx context.Context, ship *fleet.Ship, shell fleet.Shell, run *fleet.SweepRun) error {
	if run.StepM <= 0 {
		return fmt.Errorf("sweep step must be positive, got %v", run.StepM)
	}
	if run.EndRangeM < run.StartRangeM {
		return fmt.Errorf("sweep end %v m is before start %v m", run.EndRangeM, run.StartRangeM)
	}
	profile := shell.Profile()
	if err := profile.Validate(); err != nil {
		return err
	}

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if m.hasBackend() {
		if err := m.backend.StartRun(run); err != nil {
			return fmt.Errorf("start run: %w", err)
		}
	}
	if m.deps.Session != nil {
		m.deps.Session.SetRun(ship, run)
	}

	query := gunnery.ArmorQuery{
		ThicknessMM:  run.TargetThicknessMM,
		ObliquityDeg: run.TargetObliquityDeg,
	}
	count := int(math.Floor((run.EndRangeM-run.StartRangeM)/run.StepM+1e-9)) + 1
	m.pendingJobs.Store(int64(count))

	jobs := channel.New[float64](count)
	results := queue.New[fleet.EngagementRecord]()

	workers := m.deps.Sweep.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > count {
		workers = count
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			solved := 0
			started := time.Now()
			for rangeM := range jobs.Receive() {
				if ctx.Err() != nil {
					m.pendingJobs.Add(-1)
					continue
				}
				results.Push(m.evaluatePoint(ship.ID, shell, query, rangeM))
				solved++
				m.pendingJobs.Add(-1)
			}
			if m.deps.Influx != nil && solved > 0 {
				bucket, pt := influx.SolverBatchPoint(ship.ID, shell.Name, solved, time.Since(started))
				_ = m.deps.Influx.WritePoint(ctx, bucket, pt)
			}
		}()
	}

	for i := 0; i < count; i++ {
		jobs.Send(run.StartRangeM + float64(i)*run.StepM)
	}
	jobs.Close()
	wg.Wait()

	if err := m.flushRun(ctx, run, results.GetAndEmpty()); err != nil {
		return err
	}
	if m.deps.Session != nil {
		m.deps.Session.ClearRun()
	}
	if ctx.Err() != nil {
		return fmt.Errorf("sweep interrupted: %w", ctx.Err())
	}
	return nil
}

// evaluatePoint solves a single range step. Steps the solver cannot reach
// still produce a record, tagged unreachable, so exports keep one row per
// step.
func (m *Manager) evaluatePoint(shipID string, shell fleet.Shell, q gunnery.ArmorQuery, rangeM float64) fleet.EngagementRecord {
	rep, err := gunnery.EvaluateEngagement(shell.Profile(), rangeM, q, m.deps.Calibration, m.SolverOptions()...)
	if err != nil {
		return fleet.EngagementRecord{
			ShipID:             shipID,
			Shell:              shell.Name,
			RangeM:             rangeM,
			Outcome:            OutcomeUnreachable,
			TargetThicknessMM:  q.ThicknessMM,
			TargetObliquityDeg: q.ObliquityDeg,
			EvaluatedAt:        time.Now(),
		}
	}
	return fleet.NewEngagementRecord(shipID, shell.Name, q, rep)
}

// flushRun writes the solved records in range order, stamps the run totals
// and ends the run on the backend.
func (m *Manager) flushRun(ctx context.Context, run *fleet.SweepRun, records []fleet.EngagementRecord) error {
	sort.Slice(records, func(i, j int) bool { return records[i].RangeM < records[j].RangeM })

	started := time.Now()
	unreachable := 0
	for i := range records {
		if records[i].Outcome == OutcomeUnreachable {
			unreachable++
		}
		if m.hasBackend() {
			if err := m.backend.RecordEngagement(&records[i]); err != nil {
				m.logger().Error("Record engagement failed", "rangeM", records[i].RangeM, "error", err)
			}
		}
		if m.deps.Influx != nil {
			bucket, pt := influx.EngagementPoint(&records[i])
			_ = m.deps.Influx.WritePoint(ctx, bucket, pt)
		}
	}
	m.lastFlushNS.Store(time.Since(started).Nanoseconds())

	run.Points = len(records)
	run.Unreachable = unreachable
	run.CompletedAt = time.Now()

	if m.hasBackend() {
		if err := m.backend.EndRun(run); err != nil {
			return fmt.Errorf("end run: %w", err)
		}
	}
	if m.deps.Influx != nil {
		bucket, pt := influx.SweepRunPoint(run)
		_ = m.deps.Influx.WritePoint(ctx, bucket, pt)
	}
	return nil
}
