package plugins

import "context"

// Listener is an event handler registered through a plugin. The host adds
// and removes the same *Listener, so handlers pair up by identity.
type Listener struct {
	Event  string
	Extras map[string]any

	cb callback
}

func newListener(event string, fn any) (*Listener, error) {
	cb, err := newCallback(fn)
	if err != nil {
		return nil, err
	}
	event, err = resolveName(event, cb)
	if err != nil {
		return nil, err
	}
	return &Listener{Event: event, cb: cb}, nil
}

func (l *Listener) GetExtras() map[string]any {
	if l.Extras == nil {
		l.Extras = make(map[string]any)
	}
	return l.Extras
}

func (l *Listener) Callback() string { return l.cb.String() }

// Invoke calls the handler with the event payload.
func (l *Listener) Invoke(ctx context.Context, args ...any) error {
	return l.cb.call(ctx, args...)
}
