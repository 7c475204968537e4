package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/proxyfleet/console-server/internal/domain/node"
	"github.com/proxyfleet/console-server/internal/infrastructure/datastore"
	"github.com/proxyfleet/console-server/internal/infrastructure/objectstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const nodeKeyPrefix = "console:node:" // console:node:<id> → JSON(node.Model)

// NodeService owns the node collection. Node records carry the agent
// address the quota fan-out and the endpoint push use.
type NodeService struct {
	log  *zap.Logger
	ds   *datastore.DataStore
	objs *objectstore.ObjectStore[*node.Node]
}

func NewNodeService(ctx context.Context, log *zap.Logger, rdb *redis.Client) (*NodeService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("node-service")

	ds, err := datastore.NewDataStore(ctx, log, rdb, nodeKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("datastore: %w", err)
	}

	s := &NodeService{log: log, ds: ds, objs: objectstore.New[*node.Node]()}
	if err := s.reconcile(ctx); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return s, nil
}

func (s *NodeService) Create(ctx context.Context, r *node.Resource) (*node.View, error) {
	model := node.NewModel(r)
	raw, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}

	id, err := s.ds.Create(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	n := node.New(model, id)
	s.objs.Upsert(id, n)
	return n.View(), nil
}

func (s *NodeService) GetOne(id int64) (*node.View, error) {
	n, ok := s.objs.GetOne(id)
	if !ok {
		return nil, ErrNotFound
	}
	return n.View(), nil
}

func (s *NodeService) GetList() []*node.View {
	_, nodes := s.objs.GetList()
	views := make([]*node.View, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, n.View())
	}
	return views
}

func (s *NodeService) Delete(ctx context.Context, id int64) error {
	if _, ok := s.objs.GetOne(id); !ok {
		return ErrNotFound
	}
	if err := s.ds.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.objs.Delete(id)
	return nil
}

// Lookup returns the domain object, including the agent token. For internal
// callers only; handlers serve Views.
func (s *NodeService) Lookup(id int64) (*node.Node, bool) {
	return s.objs.GetOne(id)
}

// Nodes returns all domain nodes in ascending ID order.
func (s *NodeService) Nodes() []*node.Node {
	_, nodes := s.objs.GetList()
	return nodes
}

func (s *NodeService) reconcile(ctx context.Context) error {
	ids, vals, err := s.ds.GetList(ctx)
	if err != nil {
		return fmt.Errorf("get list: %w", err)
	}

	for i, id := range ids {
		var model node.Model
		if err := json.Unmarshal(vals[i], &model); err != nil {
			s.log.Error("corrupted data detected",
				zap.Int64("id", id),
				zap.String("data_preview", safePreview(vals[i])),
				zap.Error(err))
			return fmt.Errorf("json unmarshal: %w", err)
		}
		s.objs.Upsert(id, node.New(&model, id))
	}
	return nil
}
