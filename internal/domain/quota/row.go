package quota

// ResetSource says which schedule resets a per-node quota counter.
type ResetSource string

const (
	ResetByUser ResetSource = "user"
	ResetByNode ResetSource = "node"
)

// RowResource is the raw per-(user, node) quota record exactly as a node
// agent reports it. A limit of -1 means the user is unlimited on that node;
// used_bytes is null while the agent has not sampled a counter yet.
type RowResource struct {
	UserID      int64  `json:"user_id"`
	LimitBytes  int64  `json:"quota_limit_bytes"`
	UsedBytes   *int64 `json:"used_bytes"`
	ResetSource string `json:"quota_reset_source"`
}

// Row is the normalized per-(user, node) quota record consumed by Aggregate.
type Row struct {
	UserID      int64
	NodeID      int64
	Unlimited   bool
	LimitBytes  int64
	UsedBytes   int64
	ResetSource ResetSource
}

// NewRow normalizes an agent-reported record into a Row. The node ID comes
// from the caller: it knows which agent produced the record, the payload
// itself is not trusted to say so.
func NewRow(nodeID int64, r *RowResource) Row {
	row := Row{
		UserID:      r.UserID,
		NodeID:      nodeID,
		ResetSource: ResetByNode,
	}

	if r.LimitBytes < 0 {
		row.Unlimited = true
	} else {
		row.LimitBytes = r.LimitBytes
	}
	if r.UsedBytes != nil && *r.UsedBytes > 0 {
		row.UsedBytes = *r.UsedBytes
	}
	if r.ResetSource == string(ResetByUser) {
		row.ResetSource = ResetByUser
	}

	return row
}

// NewRows maps a batch of agent records from one node.
func NewRows(nodeID int64, rs []RowResource) []Row {
	rows := make([]Row, len(rs))
	for i := range rs {
		rows[i] = NewRow(nodeID, &rs[i])
	}
	return rows
}
