package nodeagent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxyfleet/console-server/internal/domain/endpoint"
	"github.com/proxyfleet/console-server/internal/domain/node"
	"github.com/proxyfleet/console-server/internal/domain/quota"
)

func endpointRecordFixture() *endpoint.Record {
	return &endpoint.Record{
		ID: 42,
		Request: endpoint.CreateRequest{
			Kind:   endpoint.KindSS2022Blake3AES128GCM,
			NodeID: 7,
			Port:   8388,
		},
		Credentials: endpoint.Credentials{PSK: "dGVzdC1wc2stMTZieXRlcw=="},
	}
}

func TestFetchQuotaUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/quota-usage", r.URL.Path)
		assert.Equal(t, "Bearer agent-token", r.Header.Get("Authorization"))

		var in struct {
			UserIDs []int64 `json:"user_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, []int64{1, 2}, in.UserIDs)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rows":[
			{"user_id":1,"quota_limit_bytes":100,"used_bytes":40,"quota_reset_source":"user"},
			{"user_id":2,"quota_limit_bytes":-1,"used_bytes":null}
		]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(nil, time.Second)
	n := &node.Node{ID: 7, Name: "ams-1", APIURL: srv.URL, APIToken: "agent-token"}

	rows, err := c.FetchQuotaUsage(context.Background(), n, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, quota.Row{UserID: 1, NodeID: 7, LimitBytes: 100, UsedBytes: 40, ResetSource: quota.ResetByUser}, rows[0])
	assert.Equal(t, quota.Row{UserID: 2, NodeID: 7, Unlimited: true, ResetSource: quota.ResetByNode}, rows[1])
}

func TestFetchQuotaUsageAgentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota backend down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(nil, time.Second)
	n := &node.Node{ID: 7, APIURL: srv.URL, APIToken: "t"}

	_, err := c.FetchQuotaUsage(context.Background(), n, []int64{1})

	var unreachable *UnreachableError
	require.ErrorAs(t, err, &unreachable)
	assert.Equal(t, int64(7), unreachable.NodeID)
	assert.Contains(t, unreachable.Error(), "500")
}

func TestFetchQuotaUsageConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(nil, time.Second)
	n := &node.Node{ID: 3, APIURL: url, APIToken: "t"}

	_, err := c.FetchQuotaUsage(context.Background(), n, []int64{1})

	var unreachable *UnreachableError
	assert.True(t, errors.As(err, &unreachable))
}

func TestPushEndpointSendsBearerAndPayload(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewHTTPClient(nil, time.Second)
	n := &node.Node{ID: 7, APIURL: srv.URL + "/", APIToken: "agent-token"}

	rec := endpointRecordFixture()
	require.NoError(t, c.PushEndpoint(context.Background(), n, rec))

	assert.Equal(t, "/v1/endpoints", gotPath, "trailing slash on the API URL must not double up")
	assert.Equal(t, "Bearer agent-token", gotAuth)
	assert.EqualValues(t, 42, gotBody["endpoint_id"])
}
