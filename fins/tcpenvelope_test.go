package fins_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/havrevik/finsgo/fins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPEnvelopeRoundTrip(t *testing.T) {
	env := fins.TCPEnvelope{
		Command: fins.EnvelopeCommandSend,
		Error:   fins.EnvelopeErrorNone,
		Payload: []byte{1, 2, 3, 4},
	}
	encoded := env.Encode()
	assert.Equal(t, "FINS", string(encoded[0:4]))

	decoded, err := fins.DecodeTCPEnvelope(encoded)
	require.NoError(t, err)
	assert.Equal(t, env.Command, decoded.Command)
	assert.Equal(t, env.Error, decoded.Error)
	assert.Equal(t, env.Payload, decoded.Payload)
}

func TestDecodeTCPEnvelopeBadMagic(t *testing.T) {
	_, err := fins.DecodeTCPEnvelope([]byte("XXXX\x00\x00\x00\x08\x00\x00\x00\x00\x00\x00\x00\x00"))
	assert.Error(t, err)
}

func TestSplitTCPFrameResyncsOnGarbage(t *testing.T) {
	env := fins.TCPEnvelope{Command: fins.EnvelopeCommandSend, Payload: []byte{0xAA}}
	stream := append([]byte("garbagebeforeframe"), env.Encode()...)

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(fins.SplitTCPFrame)

	require.True(t, scanner.Scan())
	frame := scanner.Bytes()
	decoded, err := fins.DecodeTCPEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, decoded.Payload)
}

func TestSplitTCPFrameMultipleFrames(t *testing.T) {
	env1 := fins.TCPEnvelope{Command: fins.EnvelopeCommandSend, Payload: []byte{1}}
	env2 := fins.TCPEnvelope{Command: fins.EnvelopeCommandSend, Payload: []byte{2, 3}}
	stream := append(env1.Encode(), env2.Encode()...)

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(fins.SplitTCPFrame)

	var frames [][]byte
	for scanner.Scan() {
		frame := make([]byte, len(scanner.Bytes()))
		copy(frame, scanner.Bytes())
		frames = append(frames, frame)
	}
	require.Len(t, frames, 2)

	d1, err := fins.DecodeTCPEnvelope(frames[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, d1.Payload)

	d2, err := fins.DecodeTCPEnvelope(frames[1])
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, d2.Payload)
}
