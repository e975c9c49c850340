// Package chain drives the three-stage execution machine behind a mint:
// Requested → Allocated → Forwarded. No stage discriminator is persisted;
// the chain's position lives entirely in the payload of the next
// scheduled message. Each stage is an independently committed step —
// a later stage's failure never rolls back an earlier stage's settled
// effects.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
)

// Stage names the two deferred self-messages the engine schedules.
type Stage string

const (
	// StageCollect is the Allocated stage: collect post-swap balances
	// and forward them to the mint authority.
	StageCollect Stage = "collect"

	// StageForward is the Forwarded stage: deliver the minted cluster
	// tokens to the user.
	StageForward Stage = "forward"
)

// StageMessage is one deferred self-call. Exactly one payload field is
// set, matching Stage.
type StageMessage struct {
	Stage   Stage                 `json:"stage"`
	Collect *model.CollectPayload `json:"collect,omitempty"`
	Forward *model.ForwardPayload `json:"forward,omitempty"`
}

// ErrQueueFull is returned when the in-memory scheduler cannot accept
// another message.
var ErrQueueFull = errors.New("chain: scheduler queue full")

// Scheduler is the deferred-message queue standing in for the host's
// guarantee that scheduled messages run strictly after the scheduling
// step commits, in emission order. Implementations must be FIFO.
type Scheduler interface {
	// Enqueue appends a stage message to the queue.
	Enqueue(ctx context.Context, msg StageMessage) error

	// Dequeue blocks until a message is available or ctx is done.
	Dequeue(ctx context.Context) (*StageMessage, error)
}

// MemoryScheduler is a channel-backed FIFO used for tests and
// development. Not suitable for production (messages do not survive a
// restart).
type MemoryScheduler struct {
	ch chan StageMessage
}

// NewMemoryScheduler creates an in-memory scheduler.
func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{ch: make(chan StageMessage, 256)}
}

func (s *MemoryScheduler) Enqueue(_ context.Context, msg StageMessage) error {
	select {
	case s.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *MemoryScheduler) Dequeue(ctx context.Context) (*StageMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-s.ch:
		return &msg, nil
	}
}

// Len reports the number of pending messages. Test helper.
func (s *MemoryScheduler) Len() int { return len(s.ch) }

func validateMessage(msg *StageMessage) error {
	switch msg.Stage {
	case StageCollect:
		if msg.Collect == nil {
			return fmt.Errorf("chain: %s message without payload", msg.Stage)
		}
	case StageForward:
		if msg.Forward == nil {
			return fmt.Errorf("chain: %s message without payload", msg.Stage)
		}
	default:
		return fmt.Errorf("chain: unknown stage %q", msg.Stage)
	}
	return nil
}

func encodeMessage(msg StageMessage) ([]byte, error) {
	if err := validateMessage(&msg); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func decodeMessage(data []byte) (*StageMessage, error) {
	var msg StageMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("chain: decode stage message: %w", err)
	}
	if err := validateMessage(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
