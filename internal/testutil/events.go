package testutil

import (
	"context"
	"sync"

	"github.com/Skotchmaster/storefront/internal/events"
)

type Published struct {
	Topic string
	Key   string
	Event events.Event
}

// Recorder is an in-memory events.Publisher. Err, when set, is returned from
// every Publish after the event is recorded.
type Recorder struct {
	mu  sync.Mutex
	Err error
	all []Published
}

func (r *Recorder) Publish(_ context.Context, topic, key string, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, Published{Topic: topic, Key: key, Event: ev})
	return r.Err
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Types(topic string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.all {
		if p.Topic == topic {
			out = append(out, p.Event.Type)
		}
	}
	return out
}
