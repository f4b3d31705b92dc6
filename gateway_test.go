package atomix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGatewayRejectsWhenNotOpen(t *testing.T) {
	ctx, err := NewContext(singleNodeConfig(t, "a"))
	require.NoError(t, err)
	gw := NewGateway(ctx)

	_, err = gw.Read([]byte("k"), Sequential).Result()
	require.ErrorIs(t, err, ErrNotOpen)
	_, err = gw.Write([]byte("k"), []byte("v")).Result()
	require.ErrorIs(t, err, ErrNotOpen)
	_, err = gw.Delete([]byte("k")).Result()
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestGatewayWriteForwardsNoLeaderWhenElecting(t *testing.T) {
	ctx := openNodeType(t, Active)
	defer ctx.Close()

	gw := NewGateway(ctx)
	_, err := gw.Write([]byte("k"), []byte("v")).Result()
	require.ErrorIs(t, err, ErrNoLeader)
}
