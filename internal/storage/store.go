package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/san-kum/htmviz/internal/htm"
)

// ErrNoRecording indicates a recording id with no metadata on disk.
var ErrNoRecording = errors.New("storage: no such recording")

// Store keeps recordings as one directory each, holding metadata.json and
// steps.csv. A lock file in the base directory serialises writers with
// readers across processes.
type Store struct {
	baseDir string
	lock    *flock.Flock
}

func New(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		lock:    flock.New(filepath.Join(baseDir, ".lock")),
	}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RecordingMetadata struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Timestamp time.Time    `json:"timestamp"`
	Seed      uint64       `json:"seed"`
	Steps     int          `json:"steps"`
	Template  htm.Template `json:"template"`
}

// StepRecord is what a recording keeps of one step. Everything else is
// derived again from the template and seed when replayed.
type StepRecord struct {
	Step      htm.StepID
	Break     bool
	Active    map[htm.Path]htm.IDSet
	Predicted map[htm.Path]htm.IDSet
}

func (s *Store) Save(name string, seed uint64, tmpl htm.Template, steps []StepRecord) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	if err := s.lock.Lock(); err != nil {
		return "", fmt.Errorf("lock recordings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	id := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	meta := RecordingMetadata{
		ID:        id,
		Name:      name,
		Timestamp: time.Now(),
		Seed:      seed,
		Steps:     len(steps),
		Template:  tmpl,
	}
	if err := writeJSON(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeSteps(filepath.Join(dir, "steps.csv"), tmpl.Paths(), steps); err != nil {
		return "", err
	}
	return id, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSteps(path string, paths []htm.Path, steps []StepRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"timestep", "model_id", "break"}
	for _, p := range paths {
		header = append(header, p.String()+":active", p.String()+":predicted")
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, st := range steps {
		row := []string{strconv.Itoa(st.Step.Timestep), st.Step.ModelID, strconv.FormatBool(st.Break)}
		for _, p := range paths {
			row = append(row, formatIDs(st.Active[p]), formatIDs(st.Predicted[p]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatIDs(ids htm.IDSet) string {
	sorted := ids.Sorted()
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " ")
}

func parseIDs(s string) (htm.IDSet, error) {
	ids := make(htm.IDSet)
	for _, f := range strings.Fields(s) {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		ids.Add(id)
	}
	return ids, nil
}

// List returns every readable recording, oldest first.
func (s *Store) List() ([]RecordingMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RecordingMetadata{}, nil
		}
		return nil, err
	}

	recs := make([]RecordingMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		recs = append(recs, *meta)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
	return recs, nil
}

func (s *Store) Load(id string) (*RecordingMetadata, error) {
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock recordings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()
	return s.readMeta(id)
}

func (s *Store) readMeta(id string) (*RecordingMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("recording %s: %w", id, ErrNoRecording)
		}
		return nil, err
	}
	var meta RecordingMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata of %s: %w", id, err)
	}
	return &meta, nil
}

func (s *Store) LoadSteps(id string) ([]StepRecord, error) {
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock recordings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	file, err := os.Open(filepath.Join(s.baseDir, id, "steps.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("recording %s: %w", id, ErrNoRecording)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read steps of %s: %w", id, err)
	}
	if len(records) < 1 {
		return []StepRecord{}, nil
	}

	header := records[0]
	var paths []htm.Path
	for i := 3; i+1 < len(header); i += 2 {
		p, err := htm.ParsePath(strings.TrimSuffix(header[i], ":active"))
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	steps := make([]StepRecord, 0, len(records)-1)
	for line, record := range records[1:] {
		if len(record) < 3+2*len(paths) {
			return nil, fmt.Errorf("steps of %s line %d: short record", id, line+2)
		}
		t, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("steps of %s line %d: %w", id, line+2, err)
		}
		brk, _ := strconv.ParseBool(record[2])
		st := StepRecord{
			Step:      htm.StepID{ModelID: record[1], Timestep: t},
			Break:     brk,
			Active:    make(map[htm.Path]htm.IDSet, len(paths)),
			Predicted: make(map[htm.Path]htm.IDSet, len(paths)),
		}
		for i, p := range paths {
			if st.Active[p], err = parseIDs(record[3+2*i]); err != nil {
				return nil, fmt.Errorf("steps of %s line %d: %w", id, line+2, err)
			}
			if st.Predicted[p], err = parseIDs(record[4+2*i]); err != nil {
				return nil, fmt.Errorf("steps of %s line %d: %w", id, line+2, err)
			}
		}
		steps = append(steps, st)
	}
	return steps, nil
}
