package events_test

import (
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jobscout-engine/internal/events"
)

func TestHub(t *testing.T) {
	Convey("Given a hub with one subscriber", t, func() {
		h := events.NewHub()
		ch, cancel := h.Subscribe()
		Reset(cancel)

		So(h.Subscribers(), ShouldEqual, 1)

		Convey("published events arrive numbered", func() {
			h.Publish(events.New("req-1", events.RunFinished, map[string]int{"added": 3}))

			got := <-ch
			So(got.Seq, ShouldEqual, 1)
			So(got.Type, ShouldEqual, events.RunFinished)
			So(got.Version, ShouldEqual, 1)
			So(got.RequestID, ShouldEqual, "req-1")
			So(string(got.Data), ShouldEqual, `{"added":3}`)

			Convey("and render as SSE frames", func() {
				frame := got.Frame()
				So(frame, ShouldStartWith, "id: 1\nevent: run.finished\ndata: ")
				So(frame, ShouldEndWith, "\n\n")

				var decoded events.Event
				data := strings.TrimSuffix(strings.SplitN(frame, "data: ", 2)[1], "\n\n")
				So(json.Unmarshal([]byte(data), &decoded), ShouldBeNil)
				So(decoded.Seq, ShouldEqual, 1)
			})
		})

		Convey("a full buffer drops instead of blocking", func() {
			for range 20 {
				h.Emit(events.PostingsAdded, nil)
			}
			So(len(ch), ShouldEqual, 16)
			So(h.Dropped(), ShouldEqual, 4)
		})

		Convey("a late subscriber can resume after a sequence number", func() {
			for range 5 {
				h.Emit(events.PostingsAdded, nil)
			}
			late, stop := h.SubscribeFrom(3)
			defer stop()
			So(len(late), ShouldEqual, 2)
			So((<-late).Seq, ShouldEqual, 4)
			So((<-late).Seq, ShouldEqual, 5)

			fresh, stopFresh := h.Subscribe()
			defer stopFresh()
			So(len(fresh), ShouldEqual, 0)
		})

		Convey("cancel unsubscribes and closes the channel once", func() {
			cancel()
			cancel()
			_, open := <-ch
			So(open, ShouldBeFalse)
			So(h.Subscribers(), ShouldEqual, 0)
		})
	})

	Convey("A nil hub ignores publishes", t, func() {
		var h *events.Hub
		So(func() { h.Emit(events.OutcomeReported, nil) }, ShouldNotPanic)
	})

	Convey("Unsequenced events render without an id line", t, func() {
		So(events.New("", "ping", nil).Frame(), ShouldStartWith, "event: ping\ndata: ")
	})
}
