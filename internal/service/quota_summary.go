package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/proxyfleet/console-server/internal/domain/node"
	"github.com/proxyfleet/console-server/internal/domain/quota"
	"github.com/proxyfleet/console-server/internal/nodeagent"
	"go.uber.org/zap"
)

// UserDirectory and NodeDirectory are the narrow slices of the user/node
// services the summary fan-out needs.
type UserDirectory interface {
	UserIDs() []int64
}

type NodeDirectory interface {
	Nodes() []*node.Node
}

// QuotaReport is the fleet-wide quota picture served to the console. The
// top-level partial flag and unreachable list mirror the per-item ones so
// the table header can show a single degraded-data banner.
type QuotaReport struct {
	Partial          bool            `json:"partial"`
	UnreachableNodes []int64         `json:"unreachable_nodes"`
	Items            []quota.Summary `json:"items"`
}

type QuotaSummaryOptions struct {
	// TTL controls how long the in-memory snapshot is served.
	// Sized for console polling; default 1s.
	TTL time.Duration
	// RefreshTimeout bounds the whole agent fan-out for a single refresh.
	RefreshTimeout time.Duration
	// MaxInflight caps concurrent agent fetches per refresh.
	MaxInflight int
	// AllowStaleOnError serves the previous snapshot when a refresh fails.
	AllowStaleOnError bool
}

func (o *QuotaSummaryOptions) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = time.Second
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = 3 * time.Second
	}
	if o.MaxInflight <= 0 {
		o.MaxInflight = 8
	}
}

// QuotaSummaryResult lets the handler set headers/telemetry.
type QuotaSummaryResult struct {
	Report      QuotaReport
	CacheHit    bool
	GeneratedAt time.Time
}

// QuotaSummaryService fans out to every node agent, absorbs per-node
// unreachability into the partial signal and folds the rows with
// quota.Aggregate. A TTL snapshot plus singleflight keeps concurrent
// console polls from stampeding the fleet: all observers of one refresh
// cycle see the same, freshest snapshot.
type QuotaSummaryService struct {
	log   *zap.Logger
	users UserDirectory
	nodes NodeDirectory
	agent nodeagent.Client

	mu      sync.RWMutex
	cache   *QuotaReport
	expires time.Time
	genAt   time.Time

	opts QuotaSummaryOptions
	now  func() time.Time

	sg singleflight.Group
}

func NewQuotaSummaryService(log *zap.Logger, users UserDirectory, nodes NodeDirectory, agent nodeagent.Client, opts QuotaSummaryOptions) *QuotaSummaryService {
	if log == nil {
		log = zap.NewNop()
	}
	opts.setDefaults()

	return &QuotaSummaryService{
		log:   log.Named("quota-summary"),
		users: users,
		nodes: nodes,
		agent: agent,
		opts:  opts,
		now:   time.Now,
	}
}

// Get returns the cached report or refreshes it when expired. Concurrent
// refreshes are coalesced.
func (s *QuotaSummaryService) Get(ctx context.Context) (QuotaSummaryResult, error) {
	// Fast path: fresh cache.
	s.mu.RLock()
	if s.cache != nil && s.now().Before(s.expires) {
		out := *s.cache
		genAt := s.genAt
		s.mu.RUnlock()
		return QuotaSummaryResult{Report: out, CacheHit: true, GeneratedAt: genAt}, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.sg.Do("quota-refresh", func() (any, error) {
		// Double-check freshness after winning the flight.
		s.mu.RLock()
		if s.cache != nil && s.now().Before(s.expires) {
			out := *s.cache
			genAt := s.genAt
			s.mu.RUnlock()
			return QuotaSummaryResult{Report: out, CacheHit: true, GeneratedAt: genAt}, nil
		}
		s.mu.RUnlock()

		ctx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
		defer cancel()

		start := s.now()
		report, err := s.refresh(ctx)
		if err != nil {
			if s.opts.AllowStaleOnError {
				s.mu.RLock()
				if s.cache != nil {
					out := *s.cache
					genAt := s.genAt
					s.mu.RUnlock()
					s.log.Warn("quota refresh failed; serving stale", zap.Error(err))
					return QuotaSummaryResult{Report: out, CacheHit: true, GeneratedAt: genAt}, nil
				}
				s.mu.RUnlock()
			}
			return nil, err
		}

		s.mu.Lock()
		s.cache = report
		s.expires = s.now().Add(s.opts.TTL)
		s.genAt = start
		s.mu.Unlock()

		return QuotaSummaryResult{Report: *report, CacheHit: false, GeneratedAt: start}, nil
	})
	if err != nil {
		return QuotaSummaryResult{}, err
	}
	return v.(QuotaSummaryResult), nil
}

// Invalidate drops the snapshot; called after user/node mutations so the
// next poll reflects them immediately.
func (s *QuotaSummaryService) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.expires = time.Time{}
	s.genAt = time.Time{}
	s.mu.Unlock()
}

// refresh polls every node agent concurrently and aggregates. A node that
// errors contributes no rows and lands on the unreachable list; it never
// fails the refresh, so one bad node cannot blank out the rest of the
// fleet's figures.
func (s *QuotaSummaryService) refresh(ctx context.Context) (*QuotaReport, error) {
	userIDs := s.users.UserIDs()
	nodes := s.nodes.Nodes()

	perNode := make([][]quota.Row, len(nodes))
	failed := make([]bool, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxInflight)
	for i, n := range nodes {
		g.Go(func() error {
			rows, err := s.agent.FetchQuotaUsage(gctx, n, userIDs)
			if err != nil {
				s.log.Warn("node quota fetch failed",
					zap.Int64("node_id", n.ID),
					zap.String("node_name", n.Name),
					zap.Error(err))
				failed[i] = true
				return nil // absorbed; degraded data is not a refresh failure
			}
			perNode[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Assemble rows in node order so the fold input is deterministic, and
	// record unreachable nodes in the same reported order.
	var rows []quota.Row
	unreachable := make([]int64, 0)
	for i, n := range nodes {
		if failed[i] {
			unreachable = append(unreachable, n.ID)
			continue
		}
		rows = append(rows, perNode[i]...)
	}

	return &QuotaReport{
		Partial:          len(unreachable) > 0,
		UnreachableNodes: unreachable,
		Items:            quota.Aggregate(userIDs, rows, unreachable),
	}, nil
}
