package id

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompoundIdRoundTripsInternalID(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		c := CompoundId{
			AgentId: AgentId(rng.Uint32()),
			ModelId: ModelId(rng.Intn(1 << 20)),
			BotId:   BotId(rng.Intn(1 << 20)),
		}
		m, b, err := FromInternalID(c.InternalID())
		require.NoError(t, err)
		assert.Equal(t, c.ModelId, m)
		assert.Equal(t, c.BotId, b)
	}
}

func TestGlobalIdInjectiveForDenseRanges(t *testing.T) {
	seen := map[uint64]CompoundId{}
	for a := AgentId(0); a < 4; a++ {
		for m := ModelId(0); m < 8; m++ {
			for b := BotId(0); b < 8; b++ {
				c := CompoundId{AgentId: a, ModelId: m, BotId: b}
				g := c.GlobalID()
				if prev, ok := seen[g]; ok {
					t.Fatalf("collision: %+v and %+v both map to %d", prev, c, g)
				}
				seen[g] = c
			}
		}
	}
}
