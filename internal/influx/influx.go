package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/shellfall/engine/v2/internal/model"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// Bucket names used by the engine.
const (
	BucketSweepData         = "sweep_data"
	BucketEnginePerformance = "engine_performance"
	BucketSolverPerformance = "solver_performance"
)

// DefaultBucketNames are the InfluxDB buckets the engine writes to.
var DefaultBucketNames = []string{
	BucketSweepData,
	BucketEnginePerformance,
	BucketSolverPerformance,
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influxdb.Enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(context.Background())

	if err != nil || !running {
		m.IsValid = false
		// create backup writer
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		err = m.setupOrganizationAndBuckets()
		if err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// get influxOrg
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Logger.Trace().Str("bucket", bucket).Msg("Creating InfluxDB writer")
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)

		m.Logger.Trace().Str("bucket", bucket).Msg("InfluxDB writer created")
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		if _, ok := m.Writers[bucket]; !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		m.Writers[bucket].WritePoint(point)
	} else {
		if m.BackupWriter == nil {
			return fmt.Errorf("influxDB client not initialized and backup writer not available")
		}

		lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Duration(1*time.Nanosecond))
		_, err := m.BackupWriter.Write([]byte(lineProtocol + "\n"))
		if err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
		}
	}

	return nil
}

// Close flushes buffered points and shuts the client down. Evaluations run
// in short-lived processes, so anything left unflushed here is lost.
func (m *Manager) Close() {
	if m.IsValid {
		for _, w := range m.Writers {
			w.Flush()
		}
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		if err := m.BackupWriter.Close(); err != nil {
			m.Logger.Error().Err(err).Msg("Error closing InfluxDB backup writer")
		}
	}
}

// EngagementPoint converts one evaluated firing solution into a point for
// the sweep_data bucket.
func EngagementPoint(e *fleet.EngagementRecord) (string, *influxdb2_write.Point) {
	point := influxdb2_write.NewPointWithMeasurement("engagement").
		AddTag("ship", e.ShipID).
		AddTag("shell", e.Shell).
		AddTag("outcome", e.Outcome).
		AddField("range_m", e.RangeM).
		AddField("elevation_deg", e.ElevationDeg).
		AddField("impact_velocity_ms", e.ImpactVelocity).
		AddField("impact_angle_deg", e.ImpactAngleDeg).
		AddField("time_of_flight_s", e.TimeOfFlightS).
		AddField("penetration_mm", e.EffectivePenetrationMM).
		AddField("target_thickness_mm", e.TargetThicknessMM).
		SetTime(e.EvaluatedAt)
	return BucketSweepData, point
}

// SweepRunPoint summarizes a completed range sweep for the sweep_data bucket.
func SweepRunPoint(run *fleet.SweepRun) (string, *influxdb2_write.Point) {
	point := influxdb2_write.NewPointWithMeasurement("sweep_run").
		AddTag("ship", run.ShipID).
		AddTag("shell", run.Shell).
		AddField("start_range_m", run.StartRangeM).
		AddField("end_range_m", run.EndRangeM).
		AddField("step_m", run.StepM).
		AddField("points", run.Points).
		AddField("unreachable", run.Unreachable).
		AddField("duration_s", run.CompletedAt.Sub(run.StartedAt).Seconds()).
		SetTime(run.CompletedAt)
	return BucketSweepData, point
}

// SolverBatchPoint records how fast a worker batch solved its share of a
// sweep, for the solver_performance bucket.
func SolverBatchPoint(ship, shell string, solved int, duration time.Duration) (string, *influxdb2_write.Point) {
	rate := float64(0)
	if duration > 0 {
		rate = float64(solved) / duration.Seconds()
	}
	point := influxdb2_write.NewPointWithMeasurement("solver_batch").
		AddTag("ship", ship).
		AddTag("shell", shell).
		AddField("solved", solved).
		AddField("duration_ms", float64(duration.Milliseconds())).
		AddField("rate_per_s", rate).
		SetTime(time.Now())
	return BucketSolverPerformance, point
}

// PerformancePoint converts a monitor sample into a point for the
// engine_performance bucket.
func PerformancePoint(perf *model.EnginePerformance) (string, *influxdb2_write.Point) {
	point := influxdb2_write.NewPointWithMeasurement("engine_status").
		AddField("sweep_jobs_queued", int(perf.QueueLengths.SweepJobs)).
		AddField("engagements_queued", int(perf.QueueLengths.Engagements)).
		AddField("last_write_ms", float64(perf.LastWriteDurationMs)).
		SetTime(perf.Time)
	return BucketEnginePerformance, point
}
