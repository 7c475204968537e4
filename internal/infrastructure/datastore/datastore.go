// Package datastore keeps raw record bytes in Redis while maintaining a
// process-local ordered index of IDs (membership + ascending order).
//
// Redis is the system of record; RAM never holds values. IDs are allocated
// with INCR on <prefix>id_seq: monotonic, never recycled, gap-tolerant. A
// single process owns a given key prefix (single-writer), and every
// operation is serialized by one mutex, which is plenty for the console's
// low write rate and removes read/write TOCTOU inside the process.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound means the record ID does not exist in the store.
var ErrNotFound = errors.New("record not found")

type DataStore struct {
	log       *zap.Logger
	rdb       *redis.Client
	keyPrefix string // raw bytes live under <prefix><id>

	mu  sync.Mutex
	pos map[int64]int // id → index into ids
	ids []int64       // ascending
}

// NewDataStore builds a store for one collection and reconciles any state
// already present in Redis under keyPrefix into the in-memory index.
func NewDataStore(ctx context.Context, log *zap.Logger, rdb *redis.Client, keyPrefix string) (*DataStore, error) {
	if rdb == nil {
		return nil, errors.New("nil redis client")
	}
	if keyPrefix == "" {
		return nil, fmt.Errorf("invalid keyPrefix: must be non-empty")
	}
	if !strings.HasSuffix(keyPrefix, ":") {
		keyPrefix = keyPrefix + ":"
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &DataStore{
		log:       log,
		rdb:       rdb,
		keyPrefix: keyPrefix,
		pos:       make(map[int64]int),
		ids:       make([]int64, 0),
	}

	if err := s.reconcile(ctx); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return s, nil
}

// Create persists value under a fresh INCR-allocated ID and indexes it.
// The index is only touched after Redis persistence succeeds.
func (s *DataStore) Create(ctx context.Context, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.rdb.Incr(ctx, sequenceKey(s.keyPrefix)).Result()
	if err != nil {
		return 0, fmt.Errorf("generate id via INCR: %w", err)
	}

	if err := s.rdb.Set(ctx, recordKey(s.keyPrefix, id), bcopy(value), 0).Err(); err != nil {
		return 0, fmt.Errorf("set (key=%s): %w", recordKey(s.keyPrefix, id), err)
	}

	s.indexInsert(id)
	return id, nil
}

// Update overwrites the stored value for an existing ID.
func (s *DataStore) Update(ctx context.Context, id int64, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pos[id]; !ok {
		return ErrNotFound
	}

	if err := s.rdb.Set(ctx, recordKey(s.keyPrefix, id), bcopy(value), 0).Err(); err != nil {
		return fmt.Errorf("set (key=%s): %w", recordKey(s.keyPrefix, id), err)
	}
	return nil
}

// Delete removes the record and compacts the index. Idempotent: absence in
// Redis or the index is not an error, only an invariant WARN when they
// disagree.
func (s *DataStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.pos[id]

	n, err := s.rdb.Del(ctx, recordKey(s.keyPrefix, id)).Result()
	if err != nil {
		return fmt.Errorf("del: %w", err)
	}
	if ok && n == 0 {
		s.log.Warn("delete: invariant violation (indexed id missing in Redis)", zap.Int64("id", id))
	}
	if ok {
		s.indexRemoveAt(idx)
	}
	return nil
}

// GetOne returns a copy of the value for id. An indexed id missing in Redis
// is auto-healed out of the index and reported as ErrNotFound.
func (s *DataStore) GetOne(ctx context.Context, id int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.pos[id]
	if !ok {
		return nil, ErrNotFound
	}

	val, err := s.rdb.Get(ctx, recordKey(s.keyPrefix, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.log.Warn("get_one: auto-heal (indexed id missing in Redis)", zap.Int64("id", id))
			s.indexRemoveAt(idx)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return bcopy(val), nil
}

// GetList returns (ids, values) for every indexed record, ascending by ID.
// Stale index entries (missing in Redis) are healed and excluded.
func (s *DataStore) GetList(ctx context.Context) ([]int64, [][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ids) == 0 {
		return []int64{}, [][]byte{}, nil
	}

	keys := make([]string, len(s.ids))
	for i, id := range s.ids {
		keys[i] = recordKey(s.keyPrefix, id)
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("redis mget: %w", err)
	}

	idsOut := make([]int64, 0, len(s.ids))
	valsOut := make([][]byte, 0, len(s.ids))
	var toRemove []int

	for i, raw := range vals {
		id := s.ids[i]
		switch v := raw.(type) {
		case nil:
			s.log.Warn("get_list: auto-heal (indexed id missing in Redis)", zap.Int64("id", id))
			toRemove = append(toRemove, i)
		case string:
			idsOut = append(idsOut, id)
			valsOut = append(valsOut, []byte(v))
		case []byte:
			idsOut = append(idsOut, id)
			valsOut = append(valsOut, bcopy(v))
		default:
			return nil, nil, fmt.Errorf("unexpected redis type at index %d", i)
		}
	}

	// Back-to-front so positions stay valid while compacting.
	for i := len(toRemove) - 1; i >= 0; i-- {
		s.indexRemoveAt(toRemove[i])
	}

	return idsOut, valsOut, nil
}

func recordKey(keyPrefix string, id int64) string { return keyPrefix + strconv.FormatInt(id, 10) }
func sequenceKey(keyPrefix string) string         { return keyPrefix + "id_seq" }

func bcopy(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// indexInsert inserts id into the sorted ids slice if absent and rebuilds
// pos for shifted items. Caller must hold the mutex.
func (s *DataStore) indexInsert(id int64) {
	if _, exists := s.pos[id]; exists {
		return
	}
	i := sort.Search(len(s.ids), func(j int) bool { return s.ids[j] >= id })
	if i == len(s.ids) {
		s.ids = append(s.ids, id)
		s.pos[id] = i
		return
	}
	if s.ids[i] == id {
		s.pos[id] = i
		return
	}
	s.ids = append(s.ids, 0)
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = id
	for k := i; k < len(s.ids); k++ {
		s.pos[s.ids[k]] = k
	}
}

// indexRemoveAt removes the id at index i and fixes positions.
// Caller must hold the mutex.
func (s *DataStore) indexRemoveAt(i int) {
	id := s.ids[i]
	last := len(s.ids) - 1
	copy(s.ids[i:], s.ids[i+1:])
	s.ids = s.ids[:last]
	delete(s.pos, id)
	for k := i; k < len(s.ids); k++ {
		s.pos[s.ids[k]] = k
	}
}

// reconcile scans Redis for IDs under the prefix, rebuilds the index, and
// advances the sequence counter to at least the max recovered ID so the
// next Create cannot overwrite. Non-numeric keys under the prefix are
// treated as collisions: logged and skipped.
func (s *DataStore) reconcile(ctx context.Context) error {
	start := time.Now()
	seqKey := sequenceKey(s.keyPrefix)

	errs := 0
	var ids []int64

	iter := s.rdb.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if k == seqKey {
			continue
		}
		suffix := strings.TrimPrefix(k, s.keyPrefix)
		id, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil || id <= 0 {
			s.log.Warn("reconcile: keyPrefix collision detected (non-conforming key); skipping", zap.String("key", k))
			errs++
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	newPos := make(map[int64]int, len(ids))
	for idx, id := range ids {
		newPos[id] = idx
	}

	maxID := int64(0)
	if len(ids) > 0 {
		maxID = ids[len(ids)-1]
	}
	curSeq, err := s.rdb.IncrBy(ctx, seqKey, 0).Result()
	if err != nil {
		return fmt.Errorf("redis incrby(0) seq read: %w", err)
	}
	if curSeq < maxID {
		if err := s.rdb.Set(ctx, seqKey, maxID, 0).Err(); err != nil {
			return fmt.Errorf("redis set seq to maxID: %w", err)
		}
		s.log.Warn("reconcile: sequence advanced to maxID to maintain monotonicity",
			zap.Int64("from", curSeq), zap.Int64("to", maxID), zap.String("prefix", s.keyPrefix))
	}

	s.mu.Lock()
	s.pos = newPos
	s.ids = ids
	s.mu.Unlock()

	s.log.Info("reconcile: complete",
		zap.String("prefix", s.keyPrefix),
		zap.Int("recovered", len(ids)),
		zap.Int("errors", errs),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
