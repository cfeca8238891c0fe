package hdmap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/openav/naviplan/logging"
)

const singleLane = `{lanes: [{id: "%s", boundary: [[0, -2], [10, -2], [10, 2], [0, 2]], centerline: [[0, 0], [10, 0]]}]}`

func sprintfLane(id string) string {
	return fmt.Sprintf(singleLane, id)
}

func waitReload(t *testing.T, reloaded chan error) error {
	t.Helper()
	select {
	case err := <-reloaded:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for map reload")
		return nil
	}
}

func TestWatcherReloads(t *testing.T) {
	logger := logging.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "lanes.json5")
	test.That(t, os.WriteFile(path, []byte(sprintfLane("first")), 0o600), test.ShouldBeNil)

	m, err := ReadMap(path)
	test.That(t, err, test.ShouldBeNil)

	reloaded := make(chan error)
	w, err := newWatcher(path, m, logger, reloaded)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	test.That(t, os.WriteFile(path, []byte(sprintfLane("second")), 0o600), test.ShouldBeNil)
	// The write may be observed before it completes, so wait for the new lanes.
	for m.LaneIDs()[0] != "second" {
		//nolint:errcheck
		waitReload(t, reloaded)
	}

	id, err := m.LaneContaining(context.Background(), r2.Point{X: 5, Y: 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldEqual, "second")

	// A broken file is rejected and the previous lanes survive.
	test.That(t, os.WriteFile(path, []byte("{lanes: [{id: }"), 0o600), test.ShouldBeNil)
	for waitReload(t, reloaded) == nil {
	}
	test.That(t, m.LaneIDs(), test.ShouldResemble, []string{"second"})
}
