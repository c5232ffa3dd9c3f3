package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePriority(t *testing.T) {
	cases := map[string]TicketPriority{
		"asap":     TicketPriorityASAP,
		"ASAP":     TicketPriorityASAP,
		" Asap ":   TicketPriorityASAP,
		"HIGH":     TicketPriorityHigh,
		"Medium":   TicketPriorityMedium,
		"low":      TicketPriorityLow,
		"whenever": TicketPriority("whenever"),
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizePriority(raw), "raw %q", raw)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]TicketStatus{
		"Opened":      TicketStatusOpened,
		"opened":      TicketStatusOpened,
		"open":        TicketStatusOpened,
		"Pending":     TicketStatusOpened, // legacy schema value
		"":            TicketStatusOpened,
		"Waiting For": TicketStatusWaitingFor,
		"waiting for": TicketStatusWaitingFor,
		"waiting-for": TicketStatusWaitingFor,
		"Closed":      TicketStatusClosed,
		"CLOSED":      TicketStatusClosed,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeStatus(raw), "raw %q", raw)
	}
}

func TestIsAssignedTo(t *testing.T) {
	ticket := Ticket{AssignedTo: []string{"a1", "a2"}}
	assert.True(t, ticket.IsAssignedTo("a1"))
	assert.False(t, ticket.IsAssignedTo("a3"))

	empty := Ticket{}
	assert.False(t, empty.IsAssignedTo("a1"))
}

func TestNormalizeNumber(t *testing.T) {
	cases := map[string]string{
		"+919876543210":  "9876543210",
		"919876543210":   "9876543210",
		"09876543210":    "9876543210",
		"9876543210":     "9876543210",
		"+91 98765 43210": "9876543210",
		" 98765-43210 ":  "9876543210",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeNumber(raw), "raw %q", raw)
	}
}
