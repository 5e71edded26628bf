// Package telemetry reports anonymous usage events. It is fully
// opt-out via NYXPATCHER_NO_TELEMETRY and degrades to a no-op when no
// api key is configured or the backend is unreachable.
package telemetry

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/Dig-pestroyer/NyxPatch/internal/environment"
	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
)

const disableEnvVar = "NYXPATCHER_NO_TELEMETRY"
const endpoint = "https://eu.i.posthog.com"

type Client interface {
	io.Closer
	Enqueue(posthog.Message) error
}

type CommandTelemetry struct {
	Command   string
	Success   bool
	Error     error
	Duration  time.Duration
	Arguments map[string]interface{}
	Extra     map[string]interface{}
}

var (
	mu           sync.Mutex
	singleClient Client
	machineID    string

	machineIDProvider = machineid.ID
	clientBuilder     = func(apiKey string, endpoint string) (Client, error) {
		return posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	}
)

func Enabled() bool {
	if value, set := os.LookupEnv(disableEnvVar); set && value != "" {
		return false
	}
	return environment.PosthogAPIKey() != ""
}

func Init() {
	mu.Lock()
	defer mu.Unlock()

	if singleClient != nil || !Enabled() {
		return
	}

	id, err := machineIDProvider()
	if err != nil {
		id = "unknown"
	}
	machineID = id

	client, err := clientBuilder(environment.PosthogAPIKey(), endpoint)
	if err != nil {
		return
	}
	singleClient = client
}

func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if singleClient != nil {
		_ = singleClient.Close()
	}
	singleClient = nil
	machineID = ""
}

func Capture(event string, properties map[string]interface{}) {
	mu.Lock()
	client := singleClient
	id := machineID
	mu.Unlock()

	if client == nil || event == "" {
		return
	}

	if properties == nil {
		properties = map[string]interface{}{}
	}
	properties["version"] = environment.AppVersion()

	_ = client.Enqueue(posthog.Capture{
		Event:      event,
		DistinctId: id,
		Properties: properties,
	})
}

func CaptureCommand(command CommandTelemetry) {
	properties := map[string]interface{}{
		"type":        "command",
		"success":     command.Success,
		"duration_ms": command.Duration.Milliseconds(),
	}

	if command.Error != nil {
		properties["error"] = command.Error.Error()
	}
	if command.Arguments != nil {
		properties["arguments"] = command.Arguments
	}
	if command.Extra != nil {
		properties["extra"] = command.Extra
	}

	Capture(command.Command, properties)
}

// Flush closes the underlying client, draining queued events.
func Flush() {
	mu.Lock()
	defer mu.Unlock()

	if singleClient == nil {
		return
	}
	_ = singleClient.Close()
	singleClient = nil
}
