package endpoint

// Kind discriminates the protocol variants an ingress listener can speak.
// The set is closed today; adding a variant means adding a constant and a
// self-contained build branch, never touching the existing ones.
type Kind string

const (
	// KindVLESSRealityVisionTCP is a VLESS listener with XTLS-Vision flow
	// over TCP, camouflaged behind Reality TLS.
	KindVLESSRealityVisionTCP Kind = "vless_reality_vision_tcp"

	// KindSS2022Blake3AES128GCM is a Shadowsocks-2022 listener using the
	// 2022-blake3-aes-128-gcm method.
	KindSS2022Blake3AES128GCM Kind = "ss2022_2022_blake3_aes_128_gcm"
)

// Draft carries operator-supplied fields before validation. Port is kept as
// the raw form input; BuildCreateRequest owns parsing it.
type Draft struct {
	Kind    Kind
	NodeID  int64
	Port    string
	Reality *RealityDraft
}

// RealityDraft is only populated for the Reality kind.
type RealityDraft struct {
	ServerNames []string
	Fingerprint string
}

// CreateRequest is the exact provisioning payload submitted for a new
// listener. Reality is present iff Kind is the Reality variant.
type CreateRequest struct {
	Kind    Kind            `json:"kind"`
	NodeID  int64           `json:"node_id"`
	Port    int             `json:"port"`
	Reality *RealityOptions `json:"reality,omitempty"`
}

// RealityOptions are the TLS camouflage parameters for a Reality listener.
// Dest is the genuine HTTPS site the handshake mimics; it always targets
// port 443 regardless of the inbound listen port.
type RealityOptions struct {
	Dest        string   `json:"dest"`
	ServerNames []string `json:"server_names"`
	Fingerprint string   `json:"fingerprint"`
}

// Credentials are the per-listener secrets generated at provisioning time.
// Exactly one field is set, matching the listener kind.
type Credentials struct {
	ClientID string `json:"client_id,omitempty"` // VLESS client UUID
	PSK      string `json:"psk,omitempty"`       // Shadowsocks-2022 pre-shared key
}

// Record is the persisted form of a provisioned listener.
type Record struct {
	ID          int64         `json:"id"`
	Request     CreateRequest `json:"request"`
	Credentials Credentials   `json:"credentials"`
}

// View is the API response shape for a provisioned listener. Secrets are
// included: the console needs them to render client configs.
type View struct {
	EndpointID  int64           `json:"endpoint_id"`
	Kind        Kind            `json:"kind"`
	NodeID      int64           `json:"node_id"`
	Port        int             `json:"port"`
	Reality     *RealityOptions `json:"reality,omitempty"`
	Credentials Credentials     `json:"credentials"`
}

// View projects a record into its API shape with no shared memory.
func (r *Record) View() *View {
	if r == nil {
		return nil
	}

	v := &View{
		EndpointID:  r.ID,
		Kind:        r.Request.Kind,
		NodeID:      r.Request.NodeID,
		Port:        r.Request.Port,
		Credentials: r.Credentials,
	}
	if r.Request.Reality != nil {
		opts := *r.Request.Reality
		opts.ServerNames = append(make([]string, 0, len(opts.ServerNames)), opts.ServerNames...)
		v.Reality = &opts
	}
	return v
}
