package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/efwall/genoscape/config"
)

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir          string
	summariesFile *os.File
	snapshotsFile *os.File
	lineagesFile  *os.File

	// Track if headers have been written
	summariesHeaderWritten bool
	snapshotsHeaderWritten bool
	lineagesHeaderWritten  bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "summaries.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating summaries.csv: %w", err)
	}
	om.summariesFile = f

	f, err = os.Create(filepath.Join(dir, "snapshots.csv"))
	if err != nil {
		om.summariesFile.Close()
		return nil, fmt.Errorf("creating snapshots.csv: %w", err)
	}
	om.snapshotsFile = f

	f, err = os.Create(filepath.Join(dir, "lineages.csv"))
	if err != nil {
		om.summariesFile.Close()
		om.snapshotsFile.Close()
		return nil, fmt.Errorf("creating lineages.csv: %w", err)
	}
	om.lineagesFile = f

	return om, nil
}

// WriteConfig saves the resolved scenario configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteSummaries appends summary records to summaries.csv.
func (om *OutputManager) WriteSummaries(records []SummaryRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if !om.summariesHeaderWritten {
		if err := gocsv.Marshal(records, om.summariesFile); err != nil {
			return fmt.Errorf("writing summaries: %w", err)
		}
		om.summariesHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.summariesFile); err != nil {
		return fmt.Errorf("writing summaries: %w", err)
	}
	return nil
}

// WriteSnapshots appends snapshot records to snapshots.csv.
func (om *OutputManager) WriteSnapshots(records []SnapshotRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if !om.snapshotsHeaderWritten {
		if err := gocsv.Marshal(records, om.snapshotsFile); err != nil {
			return fmt.Errorf("writing snapshots: %w", err)
		}
		om.snapshotsHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.snapshotsFile); err != nil {
		return fmt.Errorf("writing snapshots: %w", err)
	}
	return nil
}

// WriteLineages appends lineage records to lineages.csv.
func (om *OutputManager) WriteLineages(records []LineageRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if !om.lineagesHeaderWritten {
		if err := gocsv.Marshal(records, om.lineagesFile); err != nil {
			return fmt.Errorf("writing lineages: %w", err)
		}
		om.lineagesHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.lineagesFile); err != nil {
		return fmt.Errorf("writing lineages: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.summariesFile, om.snapshotsFile, om.lineagesFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
