package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/RealZimboGuy/gopherstate/internal/util"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/models"
	"github.com/stretchr/testify/require"
)

// Client drives the HTTP API of a running engine.
type Client struct {
	t       *testing.T
	baseURL string
}

func NewClient(t *testing.T, baseURL string) *Client {
	return &Client{t: t, baseURL: baseURL}
}

func (c *Client) post(path string, body any) *http.Response {
	c.t.Helper()
	b, err := json.Marshal(body)
	require.NoError(c.t, err)
	resp, err := http.Post(c.baseURL+path, "application/json", bytes.NewReader(b))
	require.NoError(c.t, err)
	return resp
}

func (c *Client) get(path string) *http.Response {
	c.t.Helper()
	resp, err := http.Get(c.baseURL + path)
	require.NoError(c.t, err)
	return resp
}

func (c *Client) CreateDefinition(req models.CreateWorkflowRequest) domain.WorkflowDef {
	c.t.Helper()
	resp := c.post("/api/workflows", req)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	def, err := util.DecodeJSONBodyResponse[domain.WorkflowDef](resp)
	require.NoError(c.t, err)
	return def
}

func (c *Client) StartInstance(definitionID string) domain.WorkflowInstance {
	c.t.Helper()
	resp := c.post("/api/instances", models.StartInstanceRequest{DefinitionID: definitionID})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	inst, err := util.DecodeJSONBodyResponse[domain.WorkflowInstance](resp)
	require.NoError(c.t, err)
	return inst
}

// ExecuteAction returns the status code and, on success, the updated instance.
func (c *Client) ExecuteAction(instanceID, actionID string) (int, domain.WorkflowInstance) {
	c.t.Helper()
	resp := c.post(fmt.Sprintf("/api/instances/%s/actions", instanceID), models.ExecuteActionRequest{ActionID: actionID})
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return resp.StatusCode, domain.WorkflowInstance{}
	}
	inst, err := util.DecodeJSONBodyResponse[domain.WorkflowInstance](resp)
	require.NoError(c.t, err)
	return resp.StatusCode, inst
}

func (c *Client) GetInstance(instanceID string) domain.WorkflowInstance {
	c.t.Helper()
	resp := c.get("/api/instances/" + instanceID)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	inst, err := util.DecodeJSONBodyResponse[domain.WorkflowInstance](resp)
	require.NoError(c.t, err)
	return inst
}
