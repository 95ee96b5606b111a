package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/domain"
)

// Command names the unit of work carried by a queue message
type Command string

const (
	CommandProcessBlock         Command = "PROCESS_BLOCK"
	CommandReceiveNewBlocks     Command = "RECEIVE_NEW_BLOCKS"
	CommandReprocessOldBlocks   Command = "REPROCESS_OLD_BLOCKS"
	CommandUpdateTokenOwnership Command = "UPDATE_TOKEN_OWNERSHIP"
)

// Queue is a priority class of messages. Work messages are always dispatched before token messages.
type Queue string

const (
	QueueWork  Queue = "work"
	QueueToken Queue = "token"
)

// Queues lists the queues in dispatch priority order
var Queues = []Queue{QueueWork, QueueToken}

// Queue returns the queue a command is published on
func (c Command) Queue() Queue {
	if c == CommandUpdateTokenOwnership {
		return QueueToken
	}
	return QueueWork
}

// IsValid reports whether the command is known
func (c Command) IsValid() bool {
	switch c {
	case CommandProcessBlock, CommandReceiveNewBlocks, CommandReprocessOldBlocks, CommandUpdateTokenOwnership:
		return true
	default:
		return false
	}
}

// ProcessBlockPayload asks for one block to be extracted and reconciled
type ProcessBlockPayload struct {
	BlockNumber uint64 `json:"blockNumber"`
	// ShouldSkipProcessingTokens suppresses the follow-up ownership messages
	ShouldSkipProcessingTokens bool `json:"shouldSkipProcessingTokens,omitempty"`
}

// ReceiveNewBlocksPayload asks for the blocks mined since the cursor to be queued
type ReceiveNewBlocksPayload struct{}

// ReprocessOldBlocksPayload asks for recently created, possibly incomplete blocks to be queued again
type ReprocessOldBlocksPayload struct{}

// UpdateTokenOwnershipPayload asks for the ownership of one token to be recomputed
type UpdateTokenOwnershipPayload struct {
	CollectionAddress string `json:"collectionAddress"`
	TokenID           string `json:"tokenId"`
}

// Validate checks the token key
func (p UpdateTokenOwnershipPayload) Validate() error {
	if !common.IsHexAddress(p.CollectionAddress) {
		return fmt.Errorf("invalid collection address %q", p.CollectionAddress)
	}
	if p.TokenID == "" {
		return errors.New("token id is required")
	}
	return nil
}

// TokenKey returns the normalized key of the token
func (p UpdateTokenOwnershipPayload) TokenKey() domain.TokenKey {
	return domain.NewTokenKey(p.CollectionAddress, p.TokenID)
}

// Envelope is the wire form of every queue message
type Envelope struct {
	// ID is a ULID, also used as the JetStream message id for deduplication
	ID        string          `json:"id"`
	Command   Command         `json:"command"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEnvelope wraps a payload for the given command
func NewEnvelope(j adapter.JSON, command Command, payload interface{}, now time.Time) (*Envelope, error) {
	if !command.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, command)
	}

	data, err := j.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", command, err)
	}

	return &Envelope{
		ID:        ulid.MustNewDefault(now).String(),
		Command:   command,
		Payload:   data,
		CreatedAt: now.UTC(),
	}, nil
}

// DecodeEnvelope parses a queue message body
func DecodeEnvelope(j adapter.JSON, data []byte) (*Envelope, error) {
	var env Envelope
	if err := j.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidMessage, err)
	}
	if !env.Command.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, env.Command)
	}
	return &env, nil
}

// DecodePayload parses the payload of an envelope into T. Unknown fields are rejected.
func DecodePayload[T any](j adapter.JSON, env *Envelope) (T, error) {
	var payload T
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return payload, nil
	}
	if err := j.UnmarshalStrict(env.Payload, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s payload: %w", domain.ErrInvalidMessage, env.Command, err)
	}
	return payload, nil
}
