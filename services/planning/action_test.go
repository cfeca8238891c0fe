package planning

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/openav/naviplan/logging"
)

func TestParseDrivingAction(t *testing.T) {
	for _, action := range []DrivingAction{ActionFollow, ActionChangeLeft, ActionChangeRight, ActionPullOver, ActionStop} {
		parsed, err := ParseDrivingAction(action.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, action)
		test.That(t, action.Valid(), test.ShouldBeTrue)
	}

	parsed, err := ParseDrivingAction(" Cruise ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, ActionFollow)

	_, err = ParseDrivingAction("fly")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, DrivingAction(42).Valid(), test.ShouldBeFalse)
	test.That(t, DrivingAction(42).String(), test.ShouldEqual, "unknown(42)")
}

func TestParsePadMessage(t *testing.T) {
	msg, err := ParsePadMessage("change_right")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Action, test.ShouldEqual, ActionChangeRight)

	msg, err = ParsePadMessage(`{"action": "stop", "params": {"reason": "obstacle"}}`)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Action, test.ShouldEqual, ActionStop)
	test.That(t, msg.Params["reason"], test.ShouldEqual, "obstacle")

	_, err = ParsePadMessage(`{"action": "hover"}`)
	test.That(t, err, test.ShouldNotBeNil)

	encoded, err := json.Marshal(PadMessage{Action: ActionPullOver})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(encoded), test.ShouldEqual, `{"action":"pull_over"}`)
}

func TestReadPadMessages(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	mock := clock.NewMock()
	mock.Set(time.Unix(1000, 0))

	input := strings.Join([]string{
		"# operator script",
		"change_left",
		"",
		"teleport",
		`{"action": "stop"}`,
	}, "\n")

	var got []PadMessage
	err := ReadPadMessages(context.Background(), strings.NewReader(input), mock, func(msg PadMessage) {
		got = append(got, msg)
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldHaveLength, 2)
	test.That(t, got[0].Action, test.ShouldEqual, ActionChangeLeft)
	test.That(t, got[0].Received, test.ShouldEqual, time.Unix(1000, 0))
	test.That(t, got[1].Action, test.ShouldEqual, ActionStop)
	test.That(t, observed.FilterMessageSnippet("malformed").Len(), test.ShouldEqual, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = ReadPadMessages(ctx, strings.NewReader("stop"), mock, func(PadMessage) {}, logger)
	test.That(t, err, test.ShouldEqual, context.Canceled)
}

func TestLocalizationBuffer(t *testing.T) {
	var buf LocalizationBuffer
	est, err := buf.LatestLocalization(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est, test.ShouldBeNil)

	buf.Update(LocalizationEstimate{Heading: 1})
	est, err = buf.LatestLocalization(context.Background())
	test.That(t, err, test.ShouldBeNil)
	est.Heading = 2

	again, err := buf.LatestLocalization(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.Heading, test.ShouldEqual, 1)
}
