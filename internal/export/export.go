// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/transaction"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// Record is one finished submission.
type Record struct {
	Label         string        `json:"label"`
	Operation     string        `json:"operation"`
	Signature     string        `json:"signature,omitempty"`
	Outcome       string        `json:"outcome"`
	Slot          uint64        `json:"slot,omitempty"`
	Count         *int64        `json:"count,omitempty"`
	UnitsConsumed uint64        `json:"units_consumed,omitempty"`
	Code          int           `json:"code,omitempty"`
	Message       string        `json:"message,omitempty"`
	Started       time.Time     `json:"started"`
	Duration      time.Duration `json:"duration"`
}

// FromResult converts an engine result into a record.
func FromResult(label, operation string, res transaction.Result, started time.Time, duration time.Duration) Record {
	r := Record{
		Label:         label,
		Operation:     operation,
		Outcome:       res.Outcome.String(),
		Slot:          res.Slot,
		UnitsConsumed: res.UnitsConsumed,
		Code:          res.Code,
		Message:       res.Message,
		Started:       started,
		Duration:      duration,
	}
	if res.Signature != (solana.Signature{}) {
		r.Signature = res.Signature.String()
	}
	return r
}

// WithCount returns r carrying the decoded counter value.
func (r Record) WithCount(count int64) Record {
	r.Count = &count
	return r
}

func csvHeaders() []string {
	return []string{"label", "operation", "signature", "outcome", "slot", "count", "units_consumed", "code", "message", "started", "duration_ms"}
}

func (r Record) toCSV() []string {
	count := ""
	if r.Count != nil {
		count = strconv.FormatInt(*r.Count, 10)
	}
	return []string{
		r.Label,
		r.Operation,
		r.Signature,
		r.Outcome,
		strconv.FormatUint(r.Slot, 10),
		count,
		strconv.FormatUint(r.UnitsConsumed, 10),
		strconv.Itoa(r.Code),
		r.Message,
		r.Started.UTC().Format(time.RFC3339Nano),
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format        ExportFormat
	Operation     string // Filter by operation
	OnlyConfirmed bool
	OutputDir     string
}

// Exporter writes submission reports.
type Exporter struct {
	logger *zap.Logger
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export")}
}

// Export writes records matching options and returns the file path.
func (e *Exporter) Export(records []Record, options ExportOptions) (string, error) {
	filtered := filter(records, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no submissions match the export criteria")
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Started.Before(filtered[j].Started)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, filename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Submissions exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func filter(records []Record, options ExportOptions) []Record {
	var out []Record
	for _, r := range records {
		if options.Operation != "" && r.Operation != options.Operation {
			continue
		}
		if options.OnlyConfirmed && r.Outcome != transaction.OutcomeConfirmed.String() {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filename(options ExportOptions) string {
	prefix := "submissions_all"
	if options.Operation != "" {
		prefix = "submissions_" + options.Operation
	}
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), options.Format)
}

func exportToCSV(records []Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(r.toCSV()); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func exportToJSON(records []Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time `json:"export_time"`
		Count      int       `json:"count"`
		Summary    Summary   `json:"summary"`
		Records    []Record  `json:"records"`
	}{
		ExportTime: time.Now(),
		Count:      len(records),
		Summary:    Summarize(records),
		Records:    records,
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary contains statistics over a set of submissions.
type Summary struct {
	Total       int            `json:"total"`
	Confirmed   int            `json:"confirmed"`
	ByOutcome   map[string]int `json:"by_outcome"`
	TotalUnits  uint64         `json:"total_units"`
	AvgDuration time.Duration  `json:"avg_duration"`
	MaxDuration time.Duration  `json:"max_duration"`
	SuccessRate float64        `json:"success_rate"`
}

func Summarize(records []Record) Summary {
	s := Summary{Total: len(records), ByOutcome: map[string]int{}}
	if len(records) == 0 {
		return s
	}

	var total time.Duration
	for _, r := range records {
		s.ByOutcome[r.Outcome]++
		if r.Outcome == transaction.OutcomeConfirmed.String() {
			s.Confirmed++
		}
		s.TotalUnits += r.UnitsConsumed
		total += r.Duration
		if r.Duration > s.MaxDuration {
			s.MaxDuration = r.Duration
		}
	}
	s.AvgDuration = total / time.Duration(len(records))
	s.SuccessRate = float64(s.Confirmed) / float64(len(records)) * 100
	return s
}
