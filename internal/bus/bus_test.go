package bus

import (
	"testing"

	"waxworks/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestQueueName(t *testing.T) {
	assert.Equal(t, "discogsography-graph-sink-artists", QueueName("graph-sink", types.KindArtists))
	assert.Equal(t, "discogsography-table-sink-releases", QueueName("table-sink", types.KindReleases))
}

func TestBindingPattern(t *testing.T) {
	assert.Equal(t, "artists.*", BindingPattern(types.KindArtists))
	assert.Equal(t, "masters.*", BindingPattern(types.KindMasters))
}

func TestChangesKey(t *testing.T) {
	for _, kind := range types.EntityKinds {
		assert.Equal(t, string(kind)+".changes", ChangesKey(kind))
	}
}
