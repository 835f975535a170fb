package rpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Pump drives the inbound half of the protocol: it decodes frames one at a
// time from a reader, classifies each, and routes the result to one of two
// channels. It never touches correlation logic — that's the Correlator's
// job — it is purely a demultiplexer, matching the "worker" component in
// the protocol design.
type Pump struct {
	reader *bufio.Reader

	responses     chan Response
	notifications chan Notification

	warnf func(format string, args ...any)
}

// NewPump creates a Pump reading frames from r. warnf receives a message
// whenever the pump can't keep up with a consumer: notifications are
// dropped outright once Notifications() falls behind (spec §4.D step 4 —
// nothing is blocked waiting on a specific notification, so losing one
// under backpressure is preferable to stalling the whole stream), while
// responses are always delivered — dropping one would strand whatever
// Call is blocked on it — but a saturated response channel still produces
// a warning so that backpressure is visible instead of silently slowing
// everything down. Pass nil to discard these warnings.
func NewPump(r *bufio.Reader, warnf func(string, ...any)) *Pump {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	return &Pump{
		reader:        r,
		responses:     make(chan Response, 64),
		notifications: make(chan Notification, 64),
		warnf:         warnf,
	}
}

// Responses returns the channel responses are delivered on. The Correlator
// is expected to be the sole consumer. Delivery here never drops a
// message — see NewPump.
func (p *Pump) Responses() <-chan Response { return p.responses }

// Notifications returns the channel notifications are delivered on, in the
// server's emission order. A burst the consumer can't keep up with is
// dropped, with a warning via warnf — see NewPump.
func (p *Pump) Notifications() <-chan Notification { return p.notifications }

// Run decodes and routes frames until the stream ends or a decode error
// occurs, then closes both output channels and returns. A decode error is
// fatal to the whole stream — one corrupt frame means every frame after it
// is unrecoverable, so Run does not attempt to resynchronize.
func (p *Pump) Run() error {
	defer close(p.responses)
	defer close(p.notifications)

	for {
		raw, err := Decode(p.reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("pump: %w", err)
		}

		incoming, err := Classify(raw)
		if err != nil {
			return fmt.Errorf("pump: %w", err)
		}

		if err := p.route(incoming); err != nil {
			return err
		}
	}
}

func (p *Pump) route(incoming Incoming) error {
	switch incoming.Kind {
	case KindResponse:
		p.deliverResponse(incoming.Response)
	case KindNotification:
		if incoming.ID != "" {
			p.warnf("pump: server request %s (id %s) delivered as a notification; no reply is sent", incoming.Notification.Method, incoming.ID)
		}
		p.deliverNotification(incoming.Notification)
	case KindBatch:
		// Elements are routed in encounter order; a response embedded in a
		// batch is delivered exactly like a standalone one.
		for _, elem := range incoming.Batch {
			if err := p.route(elem); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("pump: %w: unknown incoming kind", ErrProtocol)
	}
	return nil
}

func (p *Pump) deliverResponse(r Response) {
	select {
	case p.responses <- r:
		return
	default:
	}
	p.warnf("pump: response channel saturated, blocking delivery of %s", r.ID)
	p.responses <- r
}

func (p *Pump) deliverNotification(n Notification) {
	select {
	case p.notifications <- n:
	default:
		p.warnf("pump: dropping notification %s: consumer not keeping up", n.Method)
	}
}

// IsDecodeFatal reports whether err terminates the pump (as opposed to a
// typed-deserialization failure in the façade, which is never fatal to the
// pump per the error-handling design).
func IsDecodeFatal(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrClassify) || errors.Is(err, ErrProtocol) || errors.Is(err, ErrBatchNesting)
}

// marshalForLog is a small helper used by callers that want to log a
// best-effort summary of a message that failed further processing.
func marshalForLog(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<unmarshalable: %v>", err)
	}
	return string(b)
}
