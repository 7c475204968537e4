package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/proxyfleet/console-server/internal/domain/user"
	"github.com/proxyfleet/console-server/internal/infrastructure/datastore"
	"github.com/proxyfleet/console-server/internal/infrastructure/objectstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const userKeyPrefix = "console:user:" // console:user:<id> → JSON(user.Model)

// UserService owns the user collection: Redis-backed persistence plus an
// in-memory object store reconciled at startup.
type UserService struct {
	log  *zap.Logger
	ds   *datastore.DataStore
	objs *objectstore.ObjectStore[*user.User]
}

func NewUserService(ctx context.Context, log *zap.Logger, rdb *redis.Client) (*UserService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("user-service")

	ds, err := datastore.NewDataStore(ctx, log, rdb, userKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("datastore: %w", err)
	}

	s := &UserService{log: log, ds: ds, objs: objectstore.New[*user.User]()}
	if err := s.reconcile(ctx); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return s, nil
}

func (s *UserService) Create(ctx context.Context, r *user.Resource) (*user.View, error) {
	model := user.NewModel(r)
	raw, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}

	id, err := s.ds.Create(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	u := user.New(model, id)
	s.objs.Upsert(id, u)
	return u.View(), nil
}

func (s *UserService) GetOne(id int64) (*user.View, error) {
	u, ok := s.objs.GetOne(id)
	if !ok {
		return nil, ErrNotFound
	}
	return u.View(), nil
}

func (s *UserService) GetList() []*user.View {
	_, users := s.objs.GetList()
	views := make([]*user.View, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if _, ok := s.objs.GetOne(id); !ok {
		return ErrNotFound
	}
	if err := s.ds.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.objs.Delete(id)
	return nil
}

// UserIDs returns all user IDs in ascending order; the quota fan-out polls
// agents with exactly this set.
func (s *UserService) UserIDs() []int64 {
	ids, _ := s.objs.GetList()
	return ids
}

// reconcile loads persisted records into domain objects.
func (s *UserService) reconcile(ctx context.Context) error {
	ids, vals, err := s.ds.GetList(ctx)
	if err != nil {
		return fmt.Errorf("get list: %w", err)
	}

	for i, id := range ids {
		var model user.Model
		if err := json.Unmarshal(vals[i], &model); err != nil {
			// Corrupted data; manual Redis edits or serialization bugs.
			s.log.Error("corrupted data detected",
				zap.Int64("id", id),
				zap.String("data_preview", safePreview(vals[i])),
				zap.Error(err))
			return fmt.Errorf("json unmarshal: %w", err)
		}
		s.objs.Upsert(id, user.New(&model, id))
	}
	return nil
}

// safePreview shortens a byte slice for safe printing.
func safePreview(b []byte) string {
	n := 100
	if len(b) < n {
		n = len(b)
	}
	return string(b[:n])
}
