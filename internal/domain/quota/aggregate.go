package quota

import "sort"

// LimitKind tags a summary as a concrete byte budget or as unlimited.
type LimitKind string

const (
	LimitFixed     LimitKind = "fixed"
	LimitUnlimited LimitKind = "unlimited"
)

// Summary is the per-user quota picture folded across all contributing nodes.
//
// When any node grants the user an unlimited budget the whole summary is
// unlimited and the numeric totals are reported as zero; the display layer
// renders "unlimited" instead. Partial is set whenever at least one node
// that should have contributed a row did not.
type Summary struct {
	UserID           int64     `json:"user_id"`
	LimitKind        LimitKind `json:"quota_limit_kind"`
	LimitBytes       int64     `json:"quota_limit_bytes"`
	UsedBytes        int64     `json:"used_bytes"`
	RemainingBytes   int64     `json:"remaining_bytes"`
	Partial          bool      `json:"partial"`
	UnreachableNodes []int64   `json:"unreachable_nodes"`
}

// Aggregate folds per-node quota rows into one Summary per user.
//
// userIDs is the universe of users to summarize: a user with no rows at all
// still gets a summary (zero totals, flagged partial when nodes are missing)
// so that degraded data is never mistaken for an absent user.
//
// expected lists, in the order unreachability was reported, the nodes the
// caller asserts should have contributed a row for every listed user. For
// each user the summary records expected-minus-contributing as unreachable,
// preserving that order.
//
// Pure fold: no I/O, no retries, deterministic for a given input, and
// commutative over row order except that duplicate rows for the same
// (user, node) resolve last-write-wins.
func Aggregate(userIDs []int64, rows []Row, expected []int64) []Summary {
	// Last-write-wins dedupe per (user, node).
	byUser := make(map[int64]map[int64]Row, len(userIDs))
	for _, id := range userIDs {
		byUser[id] = make(map[int64]Row)
	}
	for _, row := range rows {
		nodes, ok := byUser[row.UserID]
		if !ok {
			// Row for a user outside the requested universe; ignore.
			continue
		}
		nodes[row.NodeID] = row
	}

	ids := make([]int64, len(userIDs))
	copy(ids, userIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Summary, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, summarize(id, byUser[id], expected))
	}
	return out
}

func summarize(userID int64, contributed map[int64]Row, expected []int64) Summary {
	s := Summary{
		UserID:           userID,
		LimitKind:        LimitFixed,
		UnreachableNodes: []int64{},
	}

	for _, nodeID := range expected {
		if _, ok := contributed[nodeID]; !ok {
			s.UnreachableNodes = append(s.UnreachableNodes, nodeID)
		}
	}
	s.Partial = len(s.UnreachableNodes) > 0

	unlimited := false
	var limit, used int64
	for _, row := range contributed {
		if row.Unlimited {
			unlimited = true
		}
		limit += row.LimitBytes
		used += row.UsedBytes
	}

	if unlimited {
		s.LimitKind = LimitUnlimited
		return s
	}

	s.LimitBytes = limit
	s.UsedBytes = used
	if remaining := limit - used; remaining > 0 {
		s.RemainingBytes = remaining
	}
	return s
}
