// Package triage computes the display order of support tickets. Rank keys
// are derived on every read, never stored: each ticket maps to a
// (groupRank, priorityRank) pair and the queue sorts ascending by
// (groupRank, priorityRank, dueDate).
package triage

import (
	"sort"
	"time"

	"github.com/markhet/agri-crm/internal/domain"
)

// Group rank buckets, ascending = shown first.
const (
	GroupASAP     = 1
	GroupOverdue  = 2
	GroupDueToday = 3
	GroupUpcoming = 4
	GroupWaiting  = 5
	GroupClosed   = 6
)

// Rank holds the derived sort keys for one ticket.
type Rank struct {
	Group    int
	Priority int
}

// DayBounds returns the local-calendar-day window [start, end] around now.
// End is the last instant of the day, matching an inclusive due-today check.
func DayBounds(now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end = start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// PriorityRank maps a priority label to its urgency rank. Comparison is
// case-insensitive; anything outside the known set ranks last.
func PriorityRank(priority domain.TicketPriority) int {
	switch domain.NormalizePriority(string(priority)) {
	case domain.TicketPriorityASAP:
		return 1
	case domain.TicketPriorityHigh:
		return 2
	case domain.TicketPriorityMedium:
		return 3
	case domain.TicketPriorityLow:
		return 4
	default:
		return 5
	}
}

// ComputeRank evaluates the group cascade for one ticket. Conditions are
// checked in order and the first match wins: closed tickets always land in
// the last group, asap beats every due-date condition, overdue beats
// due-today, and "Waiting For" only applies to tickets that are neither
// asap nor due. A ticket without a due date is neither overdue nor due
// today and falls through to the upcoming or waiting group.
func ComputeRank(t *domain.Ticket, now time.Time) Rank {
	rank := Rank{Priority: PriorityRank(t.Priority)}
	startOfDay, endOfDay := DayBounds(now)

	status := domain.NormalizeStatus(string(t.Status))
	priority := domain.NormalizePriority(string(t.Priority))

	switch {
	case status == domain.TicketStatusClosed:
		rank.Group = GroupClosed
	case priority == domain.TicketPriorityASAP:
		rank.Group = GroupASAP
	case t.DueDate != nil && t.DueDate.Before(startOfDay):
		rank.Group = GroupOverdue
	case t.DueDate != nil && !t.DueDate.Before(startOfDay) && !t.DueDate.After(endOfDay):
		rank.Group = GroupDueToday
	case status == domain.TicketStatusWaitingFor:
		rank.Group = GroupWaiting
	default:
		rank.Group = GroupUpcoming
	}
	return rank
}

// Sort orders tickets in place by (groupRank, priorityRank, dueDate)
// ascending. Tickets without a due date sort after tickets with one when
// the first two keys tie. The sort is stable so equal-key tickets keep
// their fetch order.
func Sort(tickets []domain.Ticket, now time.Time) {
	type keyed struct {
		ticket domain.Ticket
		rank   Rank
	}
	items := make([]keyed, len(tickets))
	for i := range tickets {
		items[i] = keyed{ticket: tickets[i], rank: ComputeRank(&tickets[i], now)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].rank.Group != items[j].rank.Group {
			return items[i].rank.Group < items[j].rank.Group
		}
		if items[i].rank.Priority != items[j].rank.Priority {
			return items[i].rank.Priority < items[j].rank.Priority
		}
		return dueBefore(items[i].ticket.DueDate, items[j].ticket.DueDate)
	})
	for i := range items {
		tickets[i] = items[i].ticket
	}
}

func dueBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}
