// Package botstorage is the shared scripted key-value store bot VMs read
// and write through the host "storage" module: a process-wide map indexed
// by (storage name, bot id, key), lock-striped instead of guarded by one
// global mutex, with "last write wins" semantics and no transactions.
package botstorage

import (
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

const shardCount = 16

type entryKey struct {
	storage string
	botID   uint32
	key     string
}

type shard struct {
	mu     sync.RWMutex
	values map[entryKey]string
}

// Store is the process-wide bot storage map. The zero value is not usable;
// construct with NewStore.
type Store struct {
	shards []*shard

	initMu sync.RWMutex
	init   map[string]map[uint32]map[string]string // storage -> bot id -> key -> value
}

// NewStore returns an empty store with no CSV-seeded values.
func NewStore() *Store {
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{values: make(map[entryKey]string)}
	}
	return &Store{shards: shards, init: make(map[string]map[uint32]map[string]string)}
}

func (s *Store) shardFor(k entryKey) *shard {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s\x00%d", k.storage, k.botID)
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Get reads key from storageName's slice for botID. If nothing has been
// written yet, falls back to any value seeded by LoadCSV.
func (s *Store) Get(storageName string, botID uint32, key string) (string, bool) {
	k := entryKey{storage: storageName, botID: botID, key: key}
	sh := s.shardFor(k)
	sh.mu.RLock()
	v, ok := sh.values[k]
	sh.mu.RUnlock()
	if ok {
		return v, true
	}
	return s.initValue(storageName, botID, key)
}

// Set writes key in storageName's slice for botID, overwriting whatever was
// there (last write wins, no transactions).
func (s *Store) Set(storageName string, botID uint32, key, value string) {
	k := entryKey{storage: storageName, botID: botID, key: key}
	sh := s.shardFor(k)
	sh.mu.Lock()
	sh.values[k] = value
	sh.mu.Unlock()
}

func (s *Store) initValue(storageName string, botID uint32, key string) (string, bool) {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	bots, ok := s.init[storageName]
	if !ok {
		return "", false
	}
	values, ok := bots[botID]
	if !ok {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

// LoadCSV seeds each named storage's initial values for agentID from
// "<name>-<agentID>.csv" in dir, with header "id,<k1>,<k2>,...". A missing
// file is not an error — that storage simply has no seeded values.
func (s *Store) LoadCSV(dir string, storageNames []string, agentID uint64) error {
	for _, name := range storageNames {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.csv", name, agentID))
		if err := s.loadCSVFile(name, path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadCSVFile(storageName, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("botstorage: opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("botstorage: reading header of %s: %w", path, err)
	}
	if len(header) == 0 || header[0] != "id" {
		return fmt.Errorf("botstorage: %s: expected \"id\" as the first column", path)
	}

	bots := make(map[uint32]map[string]string)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logrus.WithField("file", path).WithError(err).Warn("botstorage: skipping malformed csv row")
			continue
		}
		id, err := strconv.ParseUint(record[0], 10, 32)
		if err != nil {
			logrus.WithField("file", path).WithError(err).Warn("botstorage: skipping row with non-numeric id")
			continue
		}
		values := make(map[string]string, len(header)-1)
		for i := 1; i < len(header) && i < len(record); i++ {
			values[header[i]] = record[i]
		}
		bots[uint32(id)] = values
	}

	s.initMu.Lock()
	s.init[storageName] = bots
	s.initMu.Unlock()
	return nil
}
