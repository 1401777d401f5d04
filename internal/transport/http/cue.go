package http

import "sync"

type cuePayload struct {
	Outcome string `json:"outcome"`
}

// wsCue forwards check feedback to the client, which plays the sound.
type wsCue struct {
	mu     sync.Mutex
	closed bool
	emit   func(outboundMessage[any])
}

func newWSCue(emit func(outboundMessage[any])) *wsCue {
	return &wsCue{emit: emit}
}

func (c *wsCue) Correct() { c.play("correct") }
func (c *wsCue) Wrong()   { c.play("wrong") }

func (c *wsCue) play(outcome string) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.emit(outboundMessage[any]{Type: "cue", Payload: cuePayload{Outcome: outcome}})
}

func (c *wsCue) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
