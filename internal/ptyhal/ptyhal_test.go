package ptyhal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewPair_SendThenReceive_RoundTrips(t *testing.T) {
	a, b, err := NewPair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payload := []byte{0xCC, 0x01, 0x02, 0x03}
	require.NoError(t, a.Send(ctx, 0, payload))

	buf := make([]byte, 16)
	n, err := b.Receive(ctx, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])
}

func Test_Receive_TimesOutWithNoData(t *testing.T) {
	a, b, err := NewPair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	buf := make([]byte, 16)
	_, err = b.Receive(ctx, 0, buf)
	assert.Error(t, err)
}

func Test_Close_ThenSend_ReturnsClosedError(t *testing.T) {
	a, b, err := NewPair()
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Close())

	err = a.Send(context.Background(), 0, []byte{0x01})
	assert.ErrorIs(t, err, ErrClosed)
}
