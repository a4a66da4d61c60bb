package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StartServer boots an engine from the current GSTATE_* settings behind a test HTTP server.
func StartServer(t *testing.T, clock *FakeClock) *Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	e, err := gopherstate.NewEngine(ctx, clock)
	require.NoError(t, err)

	mux := http.NewServeMux()
	e.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		e.Close()
	})
	return NewClient(t, srv.URL)
}

func OrderWorkflow() models.CreateWorkflowRequest {
	return models.CreateWorkflowRequest{
		ID: "order",
		States: []domain.State{
			{ID: "placed", Name: "Placed", IsInitial: true, Enabled: true},
			{ID: "paid", Name: "Paid", Enabled: true},
			{ID: "shipped", Name: "Shipped", IsFinal: true, Enabled: true},
			{ID: "cancelled", Name: "Cancelled", IsFinal: true, Enabled: true},
		},
		Actions: []domain.Action{
			{ID: "pay", Name: "Pay", Enabled: true, FromStates: []string{"placed"}, ToState: "paid"},
			{ID: "ship", Name: "Ship", Enabled: true, FromStates: []string{"paid"}, ToState: "shipped", MinTimeInStateSeconds: 60},
			{ID: "cancel", Name: "Cancel", Enabled: true, FromStates: []string{"placed", "paid"}, ToState: "cancelled"},
		},
	}
}

// RunOrderScenario walks an order through payment, a dwell-gated shipment and a rejected cancel.
func RunOrderScenario(t *testing.T, client *Client, clock *FakeClock) {
	client.CreateDefinition(OrderWorkflow())
	inst := client.StartInstance("order")
	assert.Equal(t, "placed", inst.CurrentStateID)

	status, paid := client.ExecuteAction(inst.ID, "pay")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paid", paid.CurrentStateID)

	clock.Advance(59 * time.Second)
	status, _ = client.ExecuteAction(inst.ID, "ship")
	assert.Equal(t, http.StatusConflict, status)

	clock.Advance(time.Second)
	status, shipped := client.ExecuteAction(inst.ID, "ship")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "shipped", shipped.CurrentStateID)

	status, _ = client.ExecuteAction(inst.ID, "cancel")
	assert.Equal(t, http.StatusConflict, status)

	final := client.GetInstance(inst.ID)
	require.Len(t, final.History, 2)
	assert.Equal(t, "pay", final.History[0].ActionID)
	assert.Equal(t, "ship", final.History[1].ActionID)
	assert.Equal(t, Epoch.Add(time.Minute), final.EnteredStateAt)
}

// RunConcurrentPayments fires the same action at one instance from many clients; exactly one wins.
func RunConcurrentPayments(t *testing.T, client *Client) {
	inst := client.StartInstance("order")

	const n = 20
	var wg sync.WaitGroup
	statuses := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := client.ExecuteAction(inst.ID, "pay")
			statuses <- status
		}()
	}
	wg.Wait()
	close(statuses)

	ok := 0
	for s := range statuses {
		if s == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusConflict, s)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, client.GetInstance(inst.ID).History, 1)
}
