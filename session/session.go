// Package session drives one remote agent session: it validates and
// flattens the incoming record stream into the canonical transcript and
// forwards queued user input back to the transport.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/subterm/agentwire/inbox"
	"github.com/subterm/agentwire/transcript"
	"github.com/subterm/agentwire/wire"
)

// Transport is the session's contact point with the process/socket layer.
// Its internals (tmux, subprocess, websocket) are irrelevant here.
type Transport interface {
	// Records yields raw wire events until the transport closes.
	Records() <-chan json.RawMessage
	// Send forwards one user input item to the running agent.
	Send(ctx context.Context, text string) error
}

// Session owns the per-session state: one input queue, one flattener, the
// accumulated transcript, and a fingerprint set for retransmission dedup.
type Session struct {
	cfg       Config
	transport Transport
	queue     *inbox.Queue
	flattener *transcript.Flattener

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	messages []*transcript.Message
	seen     map[string]struct{}
	started  bool
	stopping bool
}

// New creates a session bound to a transport. The queue and flattener are
// owned by the session, never shared module-level state.
func New(transport Transport, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		cfg:       cfg,
		transport: transport,
		queue:     inbox.New(),
		flattener: transcript.NewFlattener(cfg.Logger),
		events:    make(chan Event, cfg.EventBufferSize),
		done:      make(chan struct{}),
		seen:      make(map[string]struct{}),
	}
}

// Inbox returns the session's input queue. UI code pushes keystroke text
// here; the session forwards it to the transport in order.
func (s *Session) Inbox() *inbox.Queue {
	return s.queue
}

// Events returns a read-only channel for receiving session events.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Messages returns a snapshot of the transcript so far. The returned
// messages are shared read-only values; only a tool call's state/result
// may still transition as later records arrive.
func (s *Session) Messages() []*transcript.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*transcript.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Start begins the record and input loops.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if s.stopping {
		return ErrStopping
	}
	s.started = true

	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.inputLoop(ctx)
	return nil
}

// Stop tears the session down: the input queue is closed so any suspended
// consumer is released, and the event channel is closed once both loops
// exit. Stop is idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	s.mu.Unlock()

	close(s.done)
	s.queue.Close()
	s.wg.Wait()
	close(s.events)
}

// readLoop validates and flattens incoming records.
func (s *Session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case raw, ok := <-s.transport.Records():
			if !ok {
				return
			}
			s.handleRecord(raw)
		}
	}
}

// inputLoop drains the inbox queue into the transport.
func (s *Session) inputLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		text, err := s.queue.Next(ctx)
		if err != nil {
			if !errors.Is(err, inbox.ErrClosed) && !errors.Is(err, context.Canceled) {
				s.cfg.Logger.Warn("input queue read failed", "err", err)
			}
			return
		}

		if err := s.transport.Send(ctx, text); err != nil {
			s.cfg.Logger.Warn("input send failed", "err", err)
			continue
		}

		// Echo the sent input into the transcript with a local id so the
		// renderer can reconcile it against the backend's copy later.
		localID := s.cfg.NewID()
		msg := &transcript.Message{
			ID:        s.cfg.NewID(),
			LocalID:   &localID,
			CreatedAt: s.cfg.Now(),
			Kind:      transcript.KindUserText,
			Text:      text,
		}
		s.append([]*transcript.Message{msg})
		s.emit(InputSentEvent{Text: text})
	}
}

func (s *Session) handleRecord(raw json.RawMessage) {
	// Dedupe transport retransmissions by canonical fingerprint. The
	// validator and flattener are pure, so a repeated record can only
	// produce duplicate transcript entries; skip it outright.
	if fp, err := wire.Fingerprint(raw); err == nil {
		s.mu.Lock()
		_, dup := s.seen[fp]
		if !dup {
			s.seen[fp] = struct{}{}
		}
		s.mu.Unlock()
		if dup {
			s.cfg.Logger.Debug("skipping retransmitted record", "fingerprint", fp)
			return
		}
	}

	rec, err := wire.DecodeRecord(raw)
	if err != nil {
		s.cfg.Logger.Warn("record failed validation", "err", err)
		s.emit(RecordRejectedEvent{Raw: raw, Err: err})
		s.append([]*transcript.Message{s.unparsedEntry(raw, err)})
		return
	}

	msgs := s.flattener.Flatten(s.cfg.NewID(), nil, s.cfg.Now(), rec)
	if len(msgs) == 0 {
		return
	}
	s.append(msgs)
	s.emit(MessagesEvent{Messages: msgs})
}

// unparsedEntry degrades a malformed record to a visible transcript entry
// instead of crashing the session view.
func (s *Session) unparsedEntry(raw json.RawMessage, cause error) *transcript.Message {
	payload, err := json.Marshal(map[string]interface{}{
		"type":   "unparsed",
		"reason": cause.Error(),
		"raw":    string(raw),
	})
	if err != nil {
		payload = json.RawMessage(fmt.Sprintf("{%q:%q}", "type", "unparsed"))
	}
	return &transcript.Message{
		ID:        s.cfg.NewID(),
		CreatedAt: s.cfg.Now(),
		Kind:      transcript.KindAgentEvent,
		Event:     payload,
	}
}

func (s *Session) append(msgs []*transcript.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msgs...)
	s.mu.Unlock()
}

// emit sends an event, dropping it if the session is stopping or the
// channel is full.
func (s *Session) emit(event Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- event:
	case <-s.done:
	default:
	}
}
