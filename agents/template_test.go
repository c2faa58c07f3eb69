package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pankgraph/cypherflow/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateAgentRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "T1D", body["mention"])
		json.NewEncoder(w).Encode([]EntityMatch{
			{ID: "disease:type-1-diabetes", Name: "type 1 diabetes", Label: "disease", Score: 0.98},
		})
	}))
	defer srv.Close()

	agent := NewTemplateAgent(TemplateConfig{BaseURL: srv.URL}, nil)
	out, err := agent.Run(context.Background(), "T1D")
	require.NoError(t, err)

	var matches []EntityMatch
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "disease:type-1-diabetes", matches[0].ID)
	assert.Equal(t, "disease", matches[0].Label)
}

func TestTemplateAgentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	agent := NewTemplateAgent(TemplateConfig{BaseURL: srv.URL}, nil)
	_, err := agent.Run(context.Background(), "T1D")
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}
