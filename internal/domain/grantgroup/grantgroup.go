package grantgroup

// ----- Resource (API request) -----

type Resource struct {
	Name    string  `json:"name" validate:"required,min=1,max=100"`
	UserIDs []int64 `json:"user_ids" validate:"required,min=1"`
	NodeIDs []int64 `json:"node_ids" validate:"required,min=1"`
}

// ----- Model (persisted JSON) -----

type Model struct {
	Name    string  `json:"name"`
	UserIDs []int64 `json:"user_ids"`
	NodeIDs []int64 `json:"node_ids"`
}

// Resource → Model (copies slices)
func NewModel(r *Resource) *Model {
	if r == nil {
		return nil
	}
	return &Model{
		Name:    r.Name,
		UserIDs: append(make([]int64, 0, len(r.UserIDs)), r.UserIDs...),
		NodeIDs: append(make([]int64, 0, len(r.NodeIDs)), r.NodeIDs...),
	}
}

// ----- Domain -----

// GrantGroup is a named bundle of access grants: every listed user gets
// access on every listed node.
type GrantGroup struct {
	ID      int64
	Name    string
	UserIDs []int64
	NodeIDs []int64
}

// Model + ID → Domain (full deep-copy, no shared memory)
func New(m *Model, id int64) *GrantGroup {
	if m == nil {
		return nil
	}
	return &GrantGroup{
		ID:      id,
		Name:    m.Name,
		UserIDs: append(make([]int64, 0, len(m.UserIDs)), m.UserIDs...),
		NodeIDs: append(make([]int64, 0, len(m.NodeIDs)), m.NodeIDs...),
	}
}

// ----- View (API response) -----

type View struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	UserIDs []int64 `json:"user_ids"`
	NodeIDs []int64 `json:"node_ids"`
}

// Domain → View (pure projection, never exposes domain memory)
func (g *GrantGroup) View() *View {
	if g == nil {
		return nil
	}
	return &View{
		ID:      g.ID,
		Name:    g.Name,
		UserIDs: append(make([]int64, 0, len(g.UserIDs)), g.UserIDs...),
		NodeIDs: append(make([]int64, 0, len(g.NodeIDs)), g.NodeIDs...),
	}
}
