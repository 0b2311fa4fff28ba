package camera

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio"

	"github.com/kozaktomas/person-tracker/internal/database"
)

// StatusFile is the report name written next to the live frames.
const StatusFile = "status.json"

// StatusReport is a point-in-time snapshot of every camera of a Manager.
type StatusReport struct {
	UpdatedAt string   `json:"updated_at"`
	Cameras   []Status `json:"cameras"`
}

// Report evaluates every camera's idle timeout and returns their state.
func (m *Manager) Report(now time.Time) StatusReport {
	return StatusReport{
		UpdatedAt: database.FormatTimestamp(now),
		Cameras:   m.Statuses(),
	}
}

// WriteStatusReport atomically replaces the report at path.
func WriteStatusReport(path string, report StatusReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status report: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadStatusReport loads a report written by WriteStatusReport.
func ReadStatusReport(path string) (StatusReport, error) {
	var report StatusReport
	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("decode %s: %w", path, err)
	}
	return report, nil
}
