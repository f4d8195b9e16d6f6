package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventQueue_TimestampThenFIFO(t *testing.T) {
	// GIVEN events scheduled out of order, three of them at the same tick
	s := &Simulator{}
	a := &StartIdlingEvent{time: 10}
	b := &StartRestoringEvent{time: 5}
	c := &JobArrivalEvent{time: 10}
	d := &StartIdlingEvent{time: 10}
	for _, ev := range []Event{a, b, c, d} {
		s.Schedule(ev)
	}

	// WHEN popped
	var got []Event
	for ev := s.EventQueue.PopNext(); ev != nil; ev = s.EventQueue.PopNext() {
		got = append(got, ev)
	}

	// THEN the earliest runs first and ties run in scheduling order
	assert.Equal(t, []Event{b, a, c, d}, got)
}

func TestSchedule_PastEventPanics(t *testing.T) {
	s := &Simulator{Clock: 100}
	assert.Panics(t, func() { s.Schedule(&StartIdlingEvent{time: 99}) })
	assert.NotPanics(t, func() { s.Schedule(&StartIdlingEvent{time: 100}) })
	assert.Nil(t, (&EventQueue{}).PopNext())
}
