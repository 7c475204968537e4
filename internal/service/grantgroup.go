package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/proxyfleet/console-server/internal/domain/grantgroup"
	"github.com/proxyfleet/console-server/internal/infrastructure/datastore"
	"github.com/proxyfleet/console-server/internal/infrastructure/objectstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const grantGroupKeyPrefix = "console:grant_group:" // console:grant_group:<id> → JSON(grantgroup.Model)

// GrantGroupService owns the grant-group collection.
type GrantGroupService struct {
	log  *zap.Logger
	ds   *datastore.DataStore
	objs *objectstore.ObjectStore[*grantgroup.GrantGroup]
}

func NewGrantGroupService(ctx context.Context, log *zap.Logger, rdb *redis.Client) (*GrantGroupService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("grant-group-service")

	ds, err := datastore.NewDataStore(ctx, log, rdb, grantGroupKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("datastore: %w", err)
	}

	s := &GrantGroupService{log: log, ds: ds, objs: objectstore.New[*grantgroup.GrantGroup]()}
	if err := s.reconcile(ctx); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return s, nil
}

func (s *GrantGroupService) Create(ctx context.Context, r *grantgroup.Resource) (*grantgroup.View, error) {
	model := grantgroup.NewModel(r)
	raw, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}

	id, err := s.ds.Create(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	g := grantgroup.New(model, id)
	s.objs.Upsert(id, g)
	return g.View(), nil
}

func (s *GrantGroupService) GetList() []*grantgroup.View {
	_, groups := s.objs.GetList()
	views := make([]*grantgroup.View, 0, len(groups))
	for _, g := range groups {
		views = append(views, g.View())
	}
	return views
}

func (s *GrantGroupService) Delete(ctx context.Context, id int64) error {
	if _, ok := s.objs.GetOne(id); !ok {
		return ErrNotFound
	}
	if err := s.ds.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.objs.Delete(id)
	return nil
}

func (s *GrantGroupService) reconcile(ctx context.Context) error {
	ids, vals, err := s.ds.GetList(ctx)
	if err != nil {
		return fmt.Errorf("get list: %w", err)
	}

	for i, id := range ids {
		var model grantgroup.Model
		if err := json.Unmarshal(vals[i], &model); err != nil {
			s.log.Error("corrupted data detected",
				zap.Int64("id", id),
				zap.String("data_preview", safePreview(vals[i])),
				zap.Error(err))
			return fmt.Errorf("json unmarshal: %w", err)
		}
		s.objs.Upsert(id, grantgroup.New(&model, id))
	}
	return nil
}
