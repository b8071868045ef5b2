package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/edtronaut/coworker/types"
)

func numberedTurns(t *testing.T, n int) []types.Turn {
	t.Helper()
	conv := types.NewConversation("s1", "gucci_chro")
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			conv.AppendTurn(types.NewUserTurn("message"))
		} else {
			conv.AppendTurn(types.NewNPCTurn("gucci_chro", "reply"))
		}
	}
	return conv.Turns
}

func TestMergeTurns_AppendsOnlyUnseenNumbers(t *testing.T) {
	all := numberedTurns(t, 4)
	stored := all[:2]

	merged := mergeTurns(stored, all[2:])
	require.Len(t, merged, 4)
	for i, turn := range merged {
		assert.Equal(t, i+1, turn.Number)
	}
}

func TestMergeTurns_ReplayIsNoOp(t *testing.T) {
	all := numberedTurns(t, 4)

	merged := mergeTurns(all, all[2:])
	assert.Len(t, merged, 4)
}

func TestMergeTurns_ConcurrentWriterWon(t *testing.T) {
	// The stored document already carries the turns another writer appended.
	// Replaying this writer's turns with the same numbers must not duplicate
	// or reorder anything.
	all := numberedTurns(t, 4)

	merged := mergeTurns(all[:4], all[2:4])
	require.Len(t, merged, 4)
	for i, turn := range merged {
		assert.Equal(t, i+1, turn.Number)
	}
}

func TestAppendFilter_GuardsOnStoredTurnCount(t *testing.T) {
	filter := appendFilter("s1", 2)
	assert.Equal(t, "s1", filter["_id"])
	assert.Equal(t, bson.M{"$size": 2}, filter["turns"])
}

func TestAppendFilter_FirstAppendRequiresAbsentTurns(t *testing.T) {
	filter := appendFilter("s1", 0)
	assert.Equal(t, "s1", filter["_id"])
	assert.Equal(t, bson.M{"$exists": false}, filter["turns"])
}
