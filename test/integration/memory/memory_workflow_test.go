package memory

import (
	"path/filepath"
	"testing"

	"github.com/RealZimboGuy/gopherstate/internal/config"
	"github.com/RealZimboGuy/gopherstate/test/integration"
)

func TestMemory_OrderWorkflow(t *testing.T) {
	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_MEMORY)
	t.Setenv(config.SNAPSHOT_FILE_NAME, filepath.Join(t.TempDir(), "workflows.json"))
	clock := integration.NewFakeClock(integration.Epoch)

	client := integration.StartServer(t, clock)
	integration.RunOrderScenario(t, client, clock)
	integration.RunConcurrentPayments(t, client)
}
