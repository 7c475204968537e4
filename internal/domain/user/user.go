package user

// CyclePolicy says whose calendar resets a user's quota counters.
type CyclePolicy string

const (
	CycleByUser CyclePolicy = "by_user"
	CycleByNode CyclePolicy = "by_node"
)

// ----- Resource (API request) -----

type Resource struct {
	DisplayName            string `json:"display_name" validate:"required,min=1,max=100"`
	CyclePolicyDefault     string `json:"cycle_policy_default" validate:"required,oneof=by_user by_node"`
	CycleDayOfMonthDefault int    `json:"cycle_day_of_month_default" validate:"required,min=1,max=31"`
}

// ----- Model (persisted JSON) -----

type Model struct {
	DisplayName            string      `json:"display_name"`
	CyclePolicyDefault     CyclePolicy `json:"cycle_policy_default"`
	CycleDayOfMonthDefault int         `json:"cycle_day_of_month_default"`
}

// Resource → Model
func NewModel(r *Resource) *Model {
	if r == nil {
		return nil
	}
	return &Model{
		DisplayName:            r.DisplayName,
		CyclePolicyDefault:     CyclePolicy(r.CyclePolicyDefault),
		CycleDayOfMonthDefault: r.CycleDayOfMonthDefault,
	}
}

// ----- Domain -----

type User struct {
	ID                     int64
	DisplayName            string
	CyclePolicyDefault     CyclePolicy
	CycleDayOfMonthDefault int
}

// Model + ID → Domain
func New(m *Model, id int64) *User {
	if m == nil {
		return nil
	}
	return &User{
		ID:                     id,
		DisplayName:            m.DisplayName,
		CyclePolicyDefault:     m.CyclePolicyDefault,
		CycleDayOfMonthDefault: m.CycleDayOfMonthDefault,
	}
}

// ----- View (API response) -----

type View struct {
	ID                     int64       `json:"id"`
	DisplayName            string      `json:"display_name"`
	CyclePolicyDefault     CyclePolicy `json:"cycle_policy_default"`
	CycleDayOfMonthDefault int         `json:"cycle_day_of_month_default"`
}

// Domain → View (pure projection)
func (u *User) View() *View {
	if u == nil {
		return nil
	}
	return &View{
		ID:                     u.ID,
		DisplayName:            u.DisplayName,
		CyclePolicyDefault:     u.CyclePolicyDefault,
		CycleDayOfMonthDefault: u.CycleDayOfMonthDefault,
	}
}
