// Package store persists design runs and flights in an embedded SQLite database.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	rocket "github.com/IsaiahDupree/two-stage-steam-rocket"
	"github.com/glebarez/sqlite"
	kitlog "github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned for unknown run IDs.
var ErrNotFound = errors.New("store: run not found")

// Store is the run history.
type Store struct {
	db     *gorm.DB
	logger kitlog.Logger
}

// Open opens the SQLite database at dsn and migrates the schema. An empty dsn opens a private in-memory database.
// A nil logger discards the logs.
func Open(dsn string, logger kitlog.Logger) (*Store, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	if dsn == "" {
		// Named so that every connection of the pool sees the same database.
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&DesignRun{}, &IterationRow{}, &FlightRun{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	logger.Log("level", "info", "subsys", "store", "dsn", dsn)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveDesign persists the report, its history and segment list. Returns the new run ID.
func (s *Store) SaveDesign(ctx context.Context, rpt *rocket.DesignReport) (string, error) {
	report, err := json.Marshal(rpt)
	if err != nil {
		return "", err
	}
	run := DesignRun{
		ID:             uuid.NewString(),
		Name:           rpt.Request.Name,
		TargetAltitude: rpt.Request.TargetAltitude,
		Payload:        rpt.Request.Payload,
		Stages:         rpt.Request.Stages,
		Propellant:     rpt.Request.Propellant,
		SafetyFactor:   rpt.Request.SafetyFactor,
		Status:         rpt.Status.String(),
		Iterations:     rpt.Iterations,
		Altitude:       rpt.Altitude,
		ErrorRatio:     rpt.ErrorRatio,
		TotalMass:      rpt.Summary.TotalMass,
		DeltaV:         rpt.Estimate.DeltaV,
		RequiredDeltaV: rpt.RequiredDeltaV,
		Warnings:       strings.Join(rpt.Warnings, "\n"),
		Report:         report,
	}
	if rpt.Flight != nil {
		apogee := rpt.Flight.Apogee
		run.Apogee = &apogee
	}
	if rpt.Rocket != nil {
		segs, err := rpt.Segments()
		if err != nil {
			return "", err
		}
		if run.Segments, err = json.Marshal(segs); err != nil {
			return "", err
		}
	}
	for _, rec := range rpt.History {
		run.History = append(run.History, IterationRow{
			Iteration:  rec.Iteration,
			Phase:      rec.Phase.String(),
			Altitude:   rec.Altitude,
			TotalMass:  rec.TotalMass,
			DeltaV:     rec.DeltaV,
			ErrorRatio: rec.ErrorRatio,
		})
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&run).Error
	})
	if err != nil {
		return "", fmt.Errorf("store: save design: %w", err)
	}
	s.logger.Log("level", "info", "subsys", "store", "design", run.ID, "name", run.Name, "status", run.Status, "records", len(run.History))
	return run.ID, nil
}

// Get returns the design run with its history ordered by iteration.
func (s *Store) Get(ctx context.Context, id string) (*DesignRun, error) {
	var run DesignRun
	err := s.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("iteration, id") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the latest design runs first, without their history and report. A limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]DesignRun, error) {
	var runs []DesignRun
	q := s.db.WithContext(ctx).Omit("Report", "Segments").Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Segments returns the segment list stored with a design run.
func (s *Store) Segments(ctx context.Context, id string) ([]rocket.Segment, error) {
	var run DesignRun
	err := s.db.WithContext(ctx).Select("id", "segments").First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var segs []rocket.Segment
	if len(run.Segments) == 0 {
		return segs, nil
	}
	if err := json.Unmarshal(run.Segments, &segs); err != nil {
		return nil, err
	}
	return segs, nil
}

// SaveFlight persists the summary of tr, attached to the design run designID unless it is empty. Returns the new flight ID.
func (s *Store) SaveFlight(ctx context.Context, designID string, tr *rocket.Trajectory) (string, error) {
	p, sum := tr.Profile, tr.Summary
	fr := FlightRun{
		ID:              uuid.NewString(),
		Thrust:          p.Thrust,
		BurnTime:        p.BurnTime,
		WetMass:         p.WetMass,
		DryMass:         p.DryMass,
		Diameter:        p.Diameter,
		Apogee:          sum.Apogee,
		ApogeeTime:      sum.ApogeeTime,
		MaxVelocity:     sum.MaxVelocity,
		MaxAcceleration: sum.MaxAcceleration,
		MaxQ:            sum.MaxQ,
		MaxQTime:        sum.MaxQTime,
		Steps:           int64(tr.Steps),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if designID != "" {
			var n int64
			if err := tx.Model(&DesignRun{}).Where("id = ?", designID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", ErrNotFound, designID)
			}
			fr.DesignRunID = &designID
		}
		return tx.Create(&fr).Error
	})
	if err != nil {
		return "", err
	}
	s.logger.Log("level", "info", "subsys", "store", "flight", fr.ID, "design", designID, "apogee(m)", fr.Apogee)
	return fr.ID, nil
}

// Flights returns the flights of a design run, oldest first.
func (s *Store) Flights(ctx context.Context, designID string) ([]FlightRun, error) {
	var frs []FlightRun
	if err := s.db.WithContext(ctx).Where("design_run_id = ?", designID).Order("created_at").Find(&frs).Error; err != nil {
		return nil, err
	}
	return frs, nil
}
