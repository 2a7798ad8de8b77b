package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/latentwalk/internal/latent"
)

const (
	metadataFile = "metadata.json"
	walkFile     = "walk.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Mode        string             `json:"mode"`
	Prompts     []string           `json:"prompts"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Steps       int                `json:"steps"`
	BatchSize   int                `json:"batch_size"`
	StepSize    float64            `json:"step_size"`
	FPS         int                `json:"fps"`
	RubberBand  bool               `json:"rubber_band"`
	Frames      int                `json:"frames"`
	Output      string             `json:"output"`
	OutputBytes int64              `json:"output_bytes"`
	Generator   string             `json:"generator"`
	Elapsed     time.Duration      `json:"elapsed"`
	Metrics     map[string]float64 `json:"metrics"`
}

// StepRecord is one row of walk.csv.
type StepRecord struct {
	Step       int     `json:"step"`
	Norm       float64 `json:"norm"`
	StepLength float64 `json:"step_length"`
	FromStart  float64 `json:"from_start"`
}

// Steps summarizes every vector of a walk. The first step has zero length.
func Steps(w latent.Walk) []StepRecord {
	out := make([]StepRecord, len(w))
	lengths := w.StepLengths()
	for i, v := range w {
		out[i] = StepRecord{Step: i, Norm: v.Norm()}
		if i > 0 {
			out[i].StepLength = lengths[i-1]
			out[i].FromStart, _ = v.Distance(w[0])
		}
	}
	return out
}

// Save writes a run directory and returns its id. An empty meta.ID is
// replaced by a fresh one.
func (s *Store) Save(meta RunMetadata, steps []StepRecord) (string, error) {
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%s", meta.Mode, uuid.NewString()[:8])
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, walkFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"step", "norm", "step_length", "from_start"}); err != nil {
		return "", err
	}
	for _, r := range steps {
		row := []string{
			strconv.Itoa(r.Step),
			strconv.FormatFloat(r.Norm, 'f', 6, 64),
			strconv.FormatFloat(r.StepLength, 'f', 6, 64),
			strconv.FormatFloat(r.FromStart, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSteps(runID string) ([]StepRecord, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, walkFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []StepRecord{}, nil
	}

	steps := make([]StepRecord, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 4 {
			continue
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		vals := make([]float64, 3)
		ok := true
		for j := range vals {
			vals[j], err = strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		steps = append(steps, StepRecord{Step: step, Norm: vals[0], StepLength: vals[1], FromStart: vals[2]})
	}
	return steps, nil
}
