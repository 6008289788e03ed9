package storage

import (
	"encoding/json"
	"io"
	"os"
)

// ExportData is a self-contained JSON rendering of one stored run.
type ExportData struct {
	Summary    Summary     `json:"summary"`
	Columns    []string    `json:"columns"`
	Times      []float64   `json:"times"`
	Species    [][]float64 `json:"species"`
	Substrate  []float64   `json:"substrate"`
	Controls   []float64   `json:"controls"`
	Production []float64   `json:"production"`
	Diversity  []float64   `json:"diversity"`
}

func (s *Store) Export(name string) (*ExportData, error) {
	sum, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	traj, err := s.LoadTrajectory(name)
	if err != nil {
		return nil, err
	}
	data := &ExportData{
		Summary:    *sum,
		Columns:    Header(sum.Species),
		Times:      make([]float64, len(traj)),
		Species:    make([][]float64, len(traj)),
		Substrate:  make([]float64, len(traj)),
		Controls:   make([]float64, len(traj)),
		Production: make([]float64, len(traj)),
		Diversity:  make([]float64, len(traj)),
	}
	for i, p := range traj {
		data.Times[i] = p.Time
		data.Species[i] = p.Species
		data.Substrate[i] = p.Substrate
		data.Controls[i] = p.Control
		data.Production[i] = p.Production
		data.Diversity[i] = p.Diversity
	}
	return data, nil
}

// MarshalJSON writes non-finite samples as null.
func (d ExportData) MarshalJSON() ([]byte, error) {
	species := make([][]*float64, len(d.Species))
	for i, row := range d.Species {
		species[i] = nullable(row)
	}
	return json.Marshal(struct {
		Summary    Summary      `json:"summary"`
		Columns    []string     `json:"columns"`
		Times      []*float64   `json:"times"`
		Species    [][]*float64 `json:"species"`
		Substrate  []*float64   `json:"substrate"`
		Controls   []*float64   `json:"controls"`
		Production []*float64   `json:"production"`
		Diversity  []*float64   `json:"diversity"`
	}{
		Summary:    d.Summary,
		Columns:    d.Columns,
		Times:      nullable(d.Times),
		Species:    species,
		Substrate:  nullable(d.Substrate),
		Controls:   nullable(d.Controls),
		Production: nullable(d.Production),
		Diversity:  nullable(d.Diversity),
	})
}

func nullable(v []float64) []*float64 {
	out := make([]*float64, len(v))
	for i, x := range v {
		out[i] = finiteOrNil(x)
	}
	return out
}

func ExportJSON(w io.Writer, data *ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func ExportJSONFile(path string, data *ExportData) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ExportJSON(f, data); err != nil {
		return err
	}
	return f.Close()
}
