package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logx "wabulk/pkg/logx"
)

// fileStore appends records as JSON Lines.
//
// Files:
//   - <prefix>.deliveries.jsonl
//   - <prefix>.runs.jsonl
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	deliveriesPath string
	runsPath       string
	deliveries     *os.File
	runs           *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:            log,
		deliveriesPath: prefix + ".deliveries.jsonl",
		runsPath:       prefix + ".runs.jsonl",
	}
	var err error
	if s.deliveries, err = openAppend(s.deliveriesPath); err != nil {
		return nil, err
	}
	if s.runs, err = openAppend(s.runsPath); err != nil {
		_ = s.deliveries.Close()
		return nil, err
	}
	log.Debug("file store opened", logx.String("prefix", prefix))
	return s, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.deliveries != nil {
		err1 = s.deliveries.Close()
		s.deliveries = nil
	}
	if s.runs != nil {
		err2 = s.runs.Close()
		s.runs = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) AppendDelivery(ctx context.Context, d Delivery) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveries == nil {
		return errors.New("delivery log closed")
	}
	return json.NewEncoder(s.deliveries).Encode(d)
}

func (s *fileStore) AppendRun(ctx context.Context, r Run) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == nil {
		return errors.New("run log closed")
	}
	return json.NewEncoder(s.runs).Encode(r)
}

func (s *fileStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Run
	err := scanJSONL(ctx, s.runsPath, func(r Run) { out = append(out, r) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fileStore) Deliveries(ctx context.Context, runID string) ([]Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Delivery
	err := scanJSONL(ctx, s.deliveriesPath, func(d Delivery) {
		if d.RunID == runID {
			out = append(out, d)
		}
	})
	return out, err
}

// scanJSONL decodes every line of path into T. Malformed lines are skipped.
func scanJSONL[T any](ctx context.Context, path string, fn func(T)) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			continue
		}
		fn(v)
	}
	return sc.Err()
}
