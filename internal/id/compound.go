package id

import (
	"encoding/binary"
	"fmt"
)

// AgentId identifies an agent process. It is process-unique within the
// parent's view and is randomly assigned unless pinned by configuration.
type AgentId uint32

// ModelId is a dense, agent-local index into the set of bot models declared
// by the currently loaded script.
type ModelId uint32

// BotId is a dense, agent-local identifier recycled by a sequential id
// generator (see internal/population).
type BotId uint32

// CompoundId is the structured identity of one bot: the agent that owns it,
// the model it belongs to, and its id within that model.
type CompoundId struct {
	AgentId AgentId
	ModelId ModelId
	BotId   BotId
}

// InternalID packs (ModelId, BotId) into a 64-bit value: concatenate their
// varint encodings and left-pad with zero bytes to 8.
func (c CompoundId) InternalID() uint64 {
	return packVarintU64(uint32(c.ModelId), uint32(c.BotId))
}

// GlobalID packs the full triple into a 64-bit value: the agent id occupies
// the high 32 bits, InternalID the low 32 bits it actually needs. This
// matches the original implementation's `global_id` (agent_id<<32 |
// internal_id) and stays injective for realistic (dense, small) model/bot
// ranges, as required by the spec's testable property 1.
func (c CompoundId) GlobalID() uint64 {
	return uint64(c.AgentId)<<32 | c.InternalID()
}

// FromInternalID decodes an InternalID back into its (ModelId, BotId) pair.
func FromInternalID(internalID uint64) (ModelId, BotId, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], internalID)
	values, err := DecodeVarintU32s(buf[:])
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("id: expected 2 sub-ids in internal id, found %d", len(values))
	}
	return ModelId(values[0]), BotId(values[1]), nil
}

func packVarintU64(vs ...uint32) uint64 {
	encoded := EncodeVarintU32s(vs...)
	if len(encoded) > 8 {
		encoded = encoded[len(encoded)-8:]
	}
	var buf [8]byte
	copy(buf[8-len(encoded):], encoded)
	return binary.BigEndian.Uint64(buf[:])
}
