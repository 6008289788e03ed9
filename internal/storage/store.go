package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/optimal"
)

// StatusError marks a run that failed before producing a trajectory.
const StatusError = "error"

// Key identifies one run of a sweep.
type Key struct {
	Condition string
	Horizon   float64
	Weighted  bool
	Alpha     float64
	Beta      float64
}

// Name is ic-<id>_tf-<horizon>, with _a-<alpha>_b-<beta> for weighted runs.
func (k Key) Name() string {
	name := fmt.Sprintf("ic-%s_tf-%s", k.Condition, formatNumber(k.Horizon))
	if k.Weighted {
		name += fmt.Sprintf("_a-%s_b-%s", formatNumber(k.Alpha), formatNumber(k.Beta))
	}
	return name
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// Summary is the JSON sibling of a run's CSV.
type Summary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Condition       string    `json:"initial_condition,omitempty"`
	Horizon         float64   `json:"horizon,omitempty"`
	Alpha           *float64  `json:"alpha,omitempty"`
	Beta            *float64  `json:"beta,omitempty"`
	Species         int       `json:"species"`
	Timestamp       time.Time `json:"timestamp"`
	Status          string    `json:"status"`
	Error           string    `json:"error,omitempty"`
	Advice          string    `json:"advice,omitempty"`
	FinalProduction float64   `json:"final_production"`
	FinalDiversity  float64   `json:"final_diversity"`
	Iterations      int       `json:"iterations"`
	WallTime        float64   `json:"wall_time_seconds"`
	Violation       float64   `json:"violation"`
	Objective       float64   `json:"objective"`
}

func newSummary(name string, key *Key, species int) Summary {
	sum := Summary{
		ID:        uuid.NewString(),
		Name:      name,
		Species:   species,
		Timestamp: time.Now().UTC(),
	}
	if key != nil {
		sum.Condition = key.Condition
		sum.Horizon = key.Horizon
		if key.Weighted {
			a, b := key.Alpha, key.Beta
			sum.Alpha, sum.Beta = &a, &b
		}
	}
	return sum
}

// summaryJSON shadows the float fields of Summary at the outer level so
// that NaN and Inf, which a diverged solve can report, encode as null.
type summaryJSON struct {
	*plainSummary
	FinalProduction *float64 `json:"final_production"`
	FinalDiversity  *float64 `json:"final_diversity"`
	WallTime        *float64 `json:"wall_time_seconds"`
	Violation       *float64 `json:"violation"`
	Objective       *float64 `json:"objective"`
}

type plainSummary Summary

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nilAsNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		plainSummary:    (*plainSummary)(&s),
		FinalProduction: finiteOrNil(s.FinalProduction),
		FinalDiversity:  finiteOrNil(s.FinalDiversity),
		WallTime:        finiteOrNil(s.WallTime),
		Violation:       finiteOrNil(s.Violation),
		Objective:       finiteOrNil(s.Objective),
	})
}

// UnmarshalJSON reads null numbers back as NaN.
func (s *Summary) UnmarshalJSON(data []byte) error {
	aux := summaryJSON{plainSummary: (*plainSummary)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.FinalProduction = nilAsNaN(aux.FinalProduction)
	s.FinalDiversity = nilAsNaN(aux.FinalDiversity)
	s.WallTime = nilAsNaN(aux.WallTime)
	s.Violation = nilAsNaN(aux.Violation)
	s.Objective = nilAsNaN(aux.Objective)
	return nil
}

// Header returns the CSV columns for n species.
func Header(n int) []string {
	header := []string{"time"}
	for i := 0; i < n; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	return append(header, "substrate", "control", "production", "diversity")
}

// SaveResult writes <name>.csv and <name>.json. key may be nil for runs
// outside a sweep.
func (s *Store) SaveResult(name string, key *Key, res *optimal.Result) (*Summary, error) {
	if len(res.Trajectory) == 0 {
		return nil, fmt.Errorf("storage: run %s has an empty trajectory", name)
	}
	n := len(res.Trajectory[0].Species)
	sum := newSummary(name, key, n)
	sum.Status = res.Status.String()
	sum.Advice = res.Advice
	sum.FinalProduction = res.FinalProduction
	sum.FinalDiversity = res.FinalDiversity
	sum.Iterations = res.Iterations
	sum.WallTime = res.WallTime.Seconds()
	sum.Violation = res.Violation
	sum.Objective = res.Objective

	if err := s.writeCSV(name, n, res.Trajectory); err != nil {
		return nil, err
	}
	if err := s.writeSummary(sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// SaveFailure writes a header-only CSV and a summary carrying the error
// status marker.
func (s *Store) SaveFailure(name string, key *Key, species int, cause error) (*Summary, error) {
	sum := newSummary(name, key, species)
	sum.Status = StatusError
	if cause != nil {
		sum.Error = cause.Error()
	}
	if err := s.writeCSV(name, species, nil); err != nil {
		return nil, err
	}
	if err := s.writeSummary(sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *Store) writeCSV(name string, n int, traj optimal.Trajectory) error {
	f, err := os.Create(filepath.Join(s.baseDir, name+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header(n)); err != nil {
		return err
	}
	for _, p := range traj {
		row := make([]string, 0, n+5)
		row = append(row, formatNumber(p.Time))
		for _, x := range p.Species {
			row = append(row, formatNumber(x))
		}
		row = append(row,
			formatNumber(p.Substrate),
			formatNumber(p.Control),
			formatNumber(p.Production),
			formatNumber(p.Diversity),
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func (s *Store) writeSummary(sum Summary) error {
	f, err := os.Create(filepath.Join(s.baseDir, sum.Name+".json"))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sum); err != nil {
		return err
	}
	return f.Close()
}

// List returns every readable summary, ordered by name.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Summary{}, nil
		}
		return nil, err
	}

	runs := make([]Summary, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		sum, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		runs = append(runs, *sum)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name < runs[j].Name })
	return runs, nil
}

func (s *Store) Load(name string) (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, name+".json"))
	if err != nil {
		return nil, err
	}
	var sum Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("storage: %s.json: %w", name, err)
	}
	return &sum, nil
}

// LoadTrajectory parses <name>.csv. A header-only file yields an empty
// trajectory.
func (s *Store) LoadTrajectory(name string) (optimal.Trajectory, error) {
	f, err := os.Open(filepath.Join(s.baseDir, name+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: %s.csv: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("storage: %s.csv has no header", name)
	}
	n := len(records[0]) - 5
	if n < 1 || strings.Join(records[0], ",") != strings.Join(Header(n), ",") {
		return nil, fmt.Errorf("%w: %s.csv header %v", dynamo.ErrDimensionMismatch, name, records[0])
	}

	traj := make(optimal.Trajectory, 0, len(records)-1)
	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s.csv row %d column %d: %w", name, i+1, j, err)
			}
			vals[j] = v
		}
		traj = append(traj, optimal.Point{
			Time:       vals[0],
			Species:    vals[1 : n+1],
			Substrate:  vals[n+1],
			Control:    vals[n+2],
			Production: vals[n+3],
			Diversity:  vals[n+4],
		})
	}
	return traj, nil
}
