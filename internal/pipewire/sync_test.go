package pipewire

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner answers list-objects with a fixed listing and records set-param calls
type fakeRunner struct {
	mu        sync.Mutex
	listing   string
	listErr   error
	failIDs   map[string]bool
	calls     [][]string
	deadlines []bool
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, hasDeadline := ctx.Deadline()
	f.deadlines = append(f.deadlines, hasDeadline)
	f.calls = append(f.calls, append([]string{name}, args...))

	if len(args) > 0 && args[0] == "list-objects" {
		if f.listErr != nil {
			return nil, f.listErr
		}
		return []byte(f.listing), nil
	}

	if len(args) > 1 && f.failIDs[args[1]] {
		return nil, errors.New("set-param failed")
	}
	return nil, nil
}

type countingObserver struct {
	updates   int
	failures  int
	discovery int
}

func (o *countingObserver) RecordEndpointUpdate(success bool) {
	if success {
		o.updates++
	} else {
		o.failures++
	}
}

func (o *countingObserver) RecordDiscoveryFailure() {
	o.discovery++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncApplyUpdatesEveryPlaybackStream(t *testing.T) {
	runner := &fakeRunner{listing: sampleListing}
	observer := &countingObserver{}
	s := NewSync(Config{}, runner, testLogger(), observer)

	updated := s.Apply(context.Background(), 0.325, 0.65)

	assert.Equal(t, 2, updated)
	assert.Equal(t, 2, observer.updates)
	assert.Zero(t, observer.failures)

	want := [][]string{
		{"pw-cli", "list-objects", "Node"},
		{"pw-cli", "set-param", "77", "Props", `{ "channelVolumes": [0.325, 0.650] }`},
		{"pw-cli", "set-param", "91", "Props", `{ "channelVolumes": [0.325, 0.650] }`},
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Errorf("Command sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncApplyIsolatesNodeFailures(t *testing.T) {
	runner := &fakeRunner{listing: sampleListing, failIDs: map[string]bool{"77": true}}
	observer := &countingObserver{}
	s := NewSync(Config{}, runner, testLogger(), observer)

	updated := s.Apply(context.Background(), 0.5, 0.5)

	assert.Equal(t, 1, updated)
	assert.Equal(t, 1, observer.updates)
	assert.Equal(t, 1, observer.failures)
	// the failing node does not stop the next one from being updated
	require.Len(t, runner.calls, 3)
	assert.Equal(t, "91", runner.calls[2][2])
}

func TestSyncApplyDiscoveryFailure(t *testing.T) {
	runner := &fakeRunner{listErr: errors.New("exec: \"pw-cli\": executable file not found in $PATH")}
	observer := &countingObserver{}
	s := NewSync(Config{}, runner, testLogger(), observer)

	assert.Equal(t, 0, s.Apply(context.Background(), 0.5, 0.5))
	assert.Equal(t, 1, observer.discovery)
	assert.Len(t, runner.calls, 1, "no updates after failed discovery")
}

func TestSyncApplyNoCaching(t *testing.T) {
	runner := &fakeRunner{listing: sampleListing}
	s := NewSync(Config{}, runner, testLogger(), nil)

	require.Equal(t, 2, s.Apply(context.Background(), 0.5, 0.5))

	// a stream disappears between cycles
	runner.listing = strings.Split(sampleListing, "\tid 91")[0]
	assert.Equal(t, 1, s.Apply(context.Background(), 0.5, 0.5))

	runner.listing = ""
	assert.Equal(t, 0, s.Apply(context.Background(), 0.5, 0.5))
}

func TestSyncCommandTimeout(t *testing.T) {
	runner := &fakeRunner{listing: sampleListing}
	s := NewSync(Config{CommandTimeout: time.Second}, runner, testLogger(), nil)
	s.Apply(context.Background(), 0.5, 0.5)

	for i, hasDeadline := range runner.deadlines {
		assert.True(t, hasDeadline, "call %d should carry a deadline", i)
	}

	runner = &fakeRunner{listing: sampleListing}
	s = NewSync(Config{}, runner, testLogger(), nil)
	s.Apply(context.Background(), 0.5, 0.5)

	for i, hasDeadline := range runner.deadlines {
		assert.False(t, hasDeadline, "call %d should not carry a deadline", i)
	}
}

func TestChannelVolumesPayload(t *testing.T) {
	tests := []struct {
		left, right float64
		expected    string
	}{
		{0.325, 0.325, `{ "channelVolumes": [0.325, 0.325] }`},
		{1, 0.05, `{ "channelVolumes": [1.000, 0.050] }`},
		{0.12345, 0.98765, `{ "channelVolumes": [0.123, 0.988] }`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ChannelVolumesPayload(tt.left, tt.right))
	}
}

// TestSyncWithExecRunner drives a shell script standing in for pw-cli
func TestSyncWithExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	listingPath := filepath.Join(dir, "listing.txt")
	logPath := filepath.Join(dir, "calls.log")
	require.NoError(t, os.WriteFile(listingPath, []byte(sampleListing), 0644))

	script := "#!/bin/sh\n" +
		"case \"$1\" in\n" +
		"list-objects) cat '" + listingPath + "' ;;\n" +
		"set-param)\n" +
		"  echo \"$2 $4\" >> '" + logPath + "'\n" +
		"  if [ \"$2\" = \"91\" ]; then echo 'no such node' >&2; exit 1; fi ;;\n" +
		"*) exit 2 ;;\n" +
		"esac\n"
	fakeCLI := filepath.Join(dir, "pw-cli")
	require.NoError(t, os.WriteFile(fakeCLI, []byte(script), 0755))

	s := NewSync(Config{Binary: fakeCLI, CommandTimeout: 5 * time.Second}, ExecRunner{}, testLogger(), nil)

	nodes, err := s.Discover(context.Background())
	require.NoError(t, err)
	assert.Len(t, PlaybackNodes(nodes), 2)

	assert.Equal(t, 1, s.Apply(context.Background(), 0.1, 0.9))

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t,
		"77 { \"channelVolumes\": [0.100, 0.900] }\n91 { \"channelVolumes\": [0.100, 0.900] }\n",
		string(logged))
}

func TestExecRunnerErrors(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	_, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 3")
	assert.Contains(t, err.Error(), "boom")

	_, err = ExecRunner{}.Run(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run")

	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}
