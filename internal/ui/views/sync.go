package views

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/taskflow/internal/board"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/syncbus"
)

const (
	// noticeTimeout is how long a failure notice stays on screen.
	noticeTimeout = 4 * time.Second
	// docSaveDelay debounces documentation saves while typing.
	docSaveDelay = 800 * time.Millisecond
)

type fetchedMsg struct {
	adapter *board.Adapter
	gen     uint64
	tasks   []models.Task
	err     error
}

type settledMsg struct {
	adapter  *board.Adapter
	mutation *board.Mutation
	result   board.Result
}

type eventMsg struct {
	adapter *board.Adapter
	gen     uint64
	sub     *syncbus.Subscription
	event   syncbus.Event
}

type clearNoticeMsg struct {
	adapter *board.Adapter
	seq     uint64
}

// fetchTasks reads a's tasks off the UI loop.
func fetchTasks(ctx context.Context, a *board.Adapter) tea.Cmd {
	gen := a.Generation()
	return func() tea.Msg {
		tasks, err := a.Fetch(ctx)
		return fetchedMsg{adapter: a, gen: gen, tasks: tasks, err: err}
	}
}

// runMutation performs m's store call off the UI loop.
func runMutation(ctx context.Context, a *board.Adapter, m *board.Mutation) tea.Cmd {
	if m == nil {
		return nil
	}
	return func() tea.Msg {
		return settledMsg{adapter: a, mutation: m, result: m.Run(ctx)}
	}
}

// waitForEvent blocks on the subscription. A closed subscription ends the
// loop.
func waitForEvent(a *board.Adapter, sub *syncbus.Subscription) tea.Cmd {
	gen := a.Generation()
	return func() tea.Msg {
		e, ok := <-sub.C()
		if !ok {
			return nil
		}
		return eventMsg{adapter: a, gen: gen, sub: sub, event: e}
	}
}

// mount subscribes a to bus and loads it.
func mount(ctx context.Context, a *board.Adapter, bus *syncbus.Bus) tea.Cmd {
	sub := a.Mount(bus)
	return tea.Batch(fetchTasks(ctx, a), waitForEvent(a, sub))
}

func expireNotice(a *board.Adapter) tea.Cmd {
	n, ok := a.Notice()
	if !ok {
		return nil
	}
	seq := n.Seq
	return tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return clearNoticeMsg{adapter: a, seq: seq}
	})
}

// handleSync applies the adapter messages addressed to a. ok is false when
// msg is not one of them.
func handleSync(ctx context.Context, a *board.Adapter, msg tea.Msg) (cmd tea.Cmd, ok bool) {
	switch msg := msg.(type) {
	case fetchedMsg:
		if msg.adapter != a {
			return nil, false
		}
		a.Apply(msg.gen, msg.tasks, msg.err)
		return expireNotice(a), true

	case settledMsg:
		if msg.adapter != a {
			return nil, false
		}
		a.Settle(msg.mutation, msg.result)
		return expireNotice(a), true

	case eventMsg:
		if msg.adapter != a {
			return nil, false
		}
		if msg.gen != a.Generation() {
			return nil, true
		}
		next := waitForEvent(a, msg.sub)
		if a.Wants(msg.event) {
			return tea.Batch(fetchTasks(ctx, a), next), true
		}
		return next, true

	case clearNoticeMsg:
		if msg.adapter != a {
			return nil, false
		}
		a.ClearNotice(msg.seq)
		return nil, true
	}
	return nil, false
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// truncate shortens s to width runes with an ellipsis
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
