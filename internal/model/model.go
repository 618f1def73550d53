package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&ScannerPlacement{},
	&Beacon{},
}

////////////////////////
// REGISTRATION MODELS
////////////////////////

// Run is one registration run and its summary figures
type Run struct {
	gorm.Model
	UUID         string         `json:"uuid" gorm:"size:36;uniqueIndex:idx_run_uuid"`
	Source       string         `json:"source" gorm:"size:255"`
	MinOverlap   int            `json:"minOverlap" gorm:"default:12"`
	RootScanner  int            `json:"rootScanner"`
	StartTime    time.Time      `json:"startTime" gorm:"index:idx_run_start"`
	DurationMs   int64          `json:"durationMs"`
	BeaconCount  int            `json:"beaconCount"`
	ScannerCount int            `json:"scannerCount"`
	MaxDistance  int            `json:"maxDistance"` // 0 when fewer than two scanners resolved
	Stalled      bool           `json:"stalled" gorm:"default:false"`
	Unresolved   datatypes.JSON `json:"unresolved"` // scanner ids left pending

	Scanners []ScannerPlacement `json:"scanners" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Beacons  []Beacon           `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Run) TableName() string {
	return "runs"
}

// ScannerPlacement is a resolved scanner: where it sits in the root frame
// and how it is turned.
type ScannerPlacement struct {
	ID             uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID          uint           `json:"runId" gorm:"index:idx_scanner_run_id"`
	ScannerID      int            `json:"scannerId"`
	ResolveOrder   int            `json:"resolveOrder"`   // 0 for the root
	Position       geom.Point     `json:"position"`       // XYZ, root frame
	Rotation       uint8          `json:"rotation"`       // index into the 24 lattice rotations
	RotationMatrix datatypes.JSON `json:"rotationMatrix"` // 3x3 integer matrix, rows first
	DetectionCount int            `json:"detectionCount"`
}

func (*ScannerPlacement) TableName() string {
	return "scanner_placements"
}

// Beacon is one distinct beacon of a run in the root frame. The integer
// coordinates are kept next to the geometry for plain SQL lookups.
type Beacon struct {
	ID       uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID    uint       `json:"runId" gorm:"index:idx_beacon_run_id"`
	Seq      int        `json:"seq"` // discovery order
	Position geom.Point `json:"position"`
	X        int        `json:"x"`
	Y        int        `json:"y"`
	Z        int        `json:"z"`
}

func (*Beacon) TableName() string {
	return "beacons"
}
