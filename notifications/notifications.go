package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"

	"github.com/containrrr/shoutrrr"
	shoutrrrtypes "github.com/containrrr/shoutrrr/pkg/types"
)

var (
	ErrInvalidURI   = errors.New("invalid URI")
	ErrUnknownEvent = errors.New("unknown event")
)

type Event string

const (
	SortComplete Event = "sort-complete"
	SortError    Event = "sort-error"
	UndoComplete Event = "undo-complete"
)

func (e Event) IsValid() bool {
	switch e {
	case SortComplete, SortError, UndoComplete:
		return true
	}
	return false
}

type Notifications struct {
	// Title is shown above each message by services which support one.
	Title    string
	mappings map[Event][]string
}

func (n *Notifications) AddURI(event Event, uri string) error {
	if n.mappings == nil {
		n.mappings = map[Event][]string{}
	}
	if !event.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if u, err := url.Parse(uri); err != nil || u.Scheme == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	n.mappings[event] = append(n.mappings[event], uri)
	return nil
}

func (n *Notifications) IterMappings(f func(Event, string)) {
	for _, event := range slices.Sorted(maps.Keys(n.mappings)) {
		for _, uri := range n.mappings[event] {
			f(event, uri)
		}
	}
}

func (n *Notifications) Sendf(ctx context.Context, event Event, f string, a ...any) {
	n.Send(ctx, event, fmt.Sprintf(f, a...))
}

// Send a plain message to every URI mapped to event. Failures are logged, never returned, since a
// notification going missing shouldn't fail a run.
func (n *Notifications) Send(ctx context.Context, event Event, message string) {
	uris := n.mappings[event]
	if len(uris) == 0 {
		return
	}

	sender, err := shoutrrr.CreateSender(uris...)
	if err != nil {
		slog.ErrorContext(ctx, "create sender", "err", err)
		return
	}

	if err := errors.Join(sender.Send(message, n.params())...); err != nil {
		slog.ErrorContext(ctx, "sending notifications", "err", err)
		return
	}
}

func (n *Notifications) params() *shoutrrrtypes.Params {
	params := &shoutrrrtypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	return params
}
