// Package archive keeps a local history of detection runs in a bolt
// database so past condemned sets can be listed and compared without
// trawling run directories.
package archive

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jianzi123/slow-node/pkg/types"
)

const dbFileName = "slownode.db"

var runsBucket = []byte("runs")

// Archive is a handle on the run database. Not safe for concurrent Open of
// the same file; bolt holds an exclusive lock.
type Archive struct {
	db *bolt.DB
}

// Summary is the per-run row shown by the history listing.
type Summary struct {
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Mode       string    `json:"mode"`
	TotalNodes int       `json:"total_nodes"`
	TotalTests int       `json:"total_tests"`
	BadNodes   []string  `json:"bad_nodes"`
}

// Open opens (or creates) the archive under dir.
func Open(dir string) (*Archive, error) {
	path := filepath.Join(dir, dbFileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing archive: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close releases the database lock.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Put stores a report keyed by its run ID, overwriting any previous entry.
func (a *Archive) Put(rep *types.Report) error {
	if rep.RunID == "" {
		return fmt.Errorf("report has no run ID")
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(rep.RunID), data)
	})
}

// Get loads one archived report by run ID.
func (a *Archive) Get(runID string) (*types.Report, error) {
	var rep *types.Report
	err := a.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(runID))
		if data == nil {
			return fmt.Errorf("run %q not found", runID)
		}
		rep = &types.Report{}
		return json.Unmarshal(data, rep)
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// List returns a summary per archived run, newest first.
func (a *Archive) List() ([]Summary, error) {
	var summaries []Summary
	err := a.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, data []byte) error {
			var rep types.Report
			if err := json.Unmarshal(data, &rep); err != nil {
				return fmt.Errorf("corrupt archive entry: %w", err)
			}
			summaries = append(summaries, Summary{
				RunID:      rep.RunID,
				Timestamp:  rep.Timestamp,
				Mode:       rep.Mode,
				TotalNodes: rep.TotalNodes,
				TotalTests: rep.TotalTests,
				BadNodes:   rep.BadNodes,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})
	return summaries, nil
}
