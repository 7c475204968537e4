package node

// ----- Resource (API request) -----

type Resource struct {
	Name     string `json:"node_name" validate:"required,min=1,max=100"`
	APIURL   string `json:"api_url" validate:"required,url"`
	APIToken string `json:"api_token" validate:"required"`
}

// ----- Model (persisted JSON) -----

type Model struct {
	Name     string `json:"node_name"`
	APIURL   string `json:"api_url"`
	APIToken string `json:"api_token"`
}

// Resource → Model
func NewModel(r *Resource) *Model {
	if r == nil {
		return nil
	}
	return &Model{Name: r.Name, APIURL: r.APIURL, APIToken: r.APIToken}
}

// ----- Domain -----

// Node is a fleet member hosting ingress listeners. APIURL/APIToken address
// its local agent; they never leave the server.
type Node struct {
	ID       int64
	Name     string
	APIURL   string
	APIToken string
}

// Model + ID → Domain
func New(m *Model, id int64) *Node {
	if m == nil {
		return nil
	}
	return &Node{ID: id, Name: m.Name, APIURL: m.APIURL, APIToken: m.APIToken}
}

// ----- View (API response) -----

// View deliberately omits the agent token.
type View struct {
	ID     int64  `json:"node_id"`
	Name   string `json:"node_name"`
	APIURL string `json:"api_url"`
}

// Domain → View (pure projection)
func (n *Node) View() *View {
	if n == nil {
		return nil
	}
	return &View{ID: n.ID, Name: n.Name, APIURL: n.APIURL}
}
