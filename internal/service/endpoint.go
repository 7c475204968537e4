package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/proxyfleet/console-server/internal/domain/endpoint"
	"github.com/proxyfleet/console-server/internal/infrastructure/datastore"
	"github.com/proxyfleet/console-server/internal/infrastructure/objectstore"
	"github.com/proxyfleet/console-server/internal/nodeagent"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const endpointKeyPrefix = "console:endpoint:" // console:endpoint:<id> → JSON(endpoint.Record)

// ErrAgentPush means the owning node's agent rejected or never received the
// provisioning payload. The record is rolled back; the operator retries.
var ErrAgentPush = errors.New("node agent push failed")

// EndpointService provisions ingress listeners: it validates drafts through
// the endpoint domain package, generates per-listener secrets, persists the
// record and hands it to the owning node's agent.
type EndpointService struct {
	log   *zap.Logger
	ds    *datastore.DataStore
	objs  *objectstore.ObjectStore[*endpoint.Record]
	nodes *NodeService
	agent nodeagent.Client
}

func NewEndpointService(ctx context.Context, log *zap.Logger, rdb *redis.Client, nodes *NodeService, agent nodeagent.Client) (*EndpointService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("endpoint-service")

	ds, err := datastore.NewDataStore(ctx, log, rdb, endpointKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("datastore: %w", err)
	}

	s := &EndpointService{
		log:   log,
		ds:    ds,
		objs:  objectstore.New[*endpoint.Record](),
		nodes: nodes,
		agent: agent,
	}
	if err := s.reconcile(ctx); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return s, nil
}

// Provision validates the draft, persists the built request and pushes it
// to the node agent. Validation errors surface untouched so the handler can
// map them to field-level messages; a failed push rolls the record back and
// reports ErrAgentPush.
func (s *EndpointService) Provision(ctx context.Context, draft *endpoint.Draft) (*endpoint.View, error) {
	req, err := endpoint.BuildCreateRequest(draft)
	if err != nil {
		return nil, err
	}

	n, ok := s.nodes.Lookup(req.NodeID)
	if !ok {
		return nil, fmt.Errorf("node %d: %w", req.NodeID, ErrNotFound)
	}

	creds, err := genCredentials(req.Kind)
	if err != nil {
		return nil, fmt.Errorf("generate credentials: %w", err)
	}

	rec := &endpoint.Record{Request: *req, Credentials: creds}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	id, err := s.ds.Create(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	rec.ID = id

	// Re-persist with the assigned ID so reconcile restores it verbatim.
	raw, err = json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	if err := s.ds.Update(ctx, id, raw); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	if err := s.agent.PushEndpoint(ctx, n, rec); err != nil {
		s.log.Warn("endpoint push failed; rolling back",
			zap.Int64("endpoint_id", id),
			zap.Int64("node_id", n.ID),
			zap.Error(err))
		if derr := s.ds.Delete(ctx, id); derr != nil {
			s.log.Error("rollback failed", zap.Int64("endpoint_id", id), zap.Error(derr))
		}
		return nil, fmt.Errorf("%w: %v", ErrAgentPush, err)
	}

	s.objs.Upsert(id, rec)
	return rec.View(), nil
}

func (s *EndpointService) GetList() []*endpoint.View {
	_, recs := s.objs.GetList()
	views := make([]*endpoint.View, 0, len(recs))
	for _, rec := range recs {
		views = append(views, rec.View())
	}
	return views
}

func (s *EndpointService) GetOne(id int64) (*endpoint.View, error) {
	rec, ok := s.objs.GetOne(id)
	if !ok {
		return nil, ErrNotFound
	}
	return rec.View(), nil
}

func (s *EndpointService) reconcile(ctx context.Context) error {
	ids, vals, err := s.ds.GetList(ctx)
	if err != nil {
		return fmt.Errorf("get list: %w", err)
	}

	for i, id := range ids {
		var rec endpoint.Record
		if err := json.Unmarshal(vals[i], &rec); err != nil {
			s.log.Error("corrupted data detected",
				zap.Int64("id", id),
				zap.String("data_preview", safePreview(vals[i])),
				zap.Error(err))
			return fmt.Errorf("json unmarshal: %w", err)
		}
		rec.ID = id
		s.objs.Upsert(id, &rec)
	}
	return nil
}

// genCredentials creates the kind-specific secret: a client UUID for VLESS,
// a 16-byte base64 PSK for 2022-blake3-aes-128-gcm.
func genCredentials(kind endpoint.Kind) (endpoint.Credentials, error) {
	switch kind {
	case endpoint.KindVLESSRealityVisionTCP:
		return endpoint.Credentials{ClientID: uuid.New().String()}, nil
	case endpoint.KindSS2022Blake3AES128GCM:
		key := make([]byte, 16)
		if _, err := rand.Read(key); err != nil {
			return endpoint.Credentials{}, fmt.Errorf("rand read: %w", err)
		}
		return endpoint.Credentials{PSK: base64.StdEncoding.EncodeToString(key)}, nil
	default:
		return endpoint.Credentials{}, fmt.Errorf("no credential scheme for kind %q", kind)
	}
}
