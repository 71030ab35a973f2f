package fins_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/havrevik/finsgo/fins"
	"github.com/havrevik/finsgo/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSimulator(t *testing.T) (*simulator.Server, string, int) {
	t.Helper()
	sim, err := simulator.New("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })

	tcpAddr := sim.Addr().(*net.TCPAddr)
	return sim, "127.0.0.1", tcpAddr.Port
}

func dialClient(t *testing.T, host string, port int) *fins.Client {
	t.Helper()
	c, err := fins.NewClient(host, fins.WithPort(port), fins.WithTimeout(2*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientReadWriteWords(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addr, err := fins.ParseAddress("D100")
	require.NoError(t, err)

	writeResp, err := c.Write(ctx, addr, 2, []byte{0x00, 0x2A, 0x00, 0x01})
	require.NoError(t, err)
	assert.True(t, writeResp.Succeeded())

	readResp, err := c.Read(ctx, addr, 2)
	require.NoError(t, err)
	require.True(t, readResp.Succeeded())
	assert.Equal(t, []byte{0x00, 0x2A, 0x00, 0x01}, readResp.Data)
}

func TestClientReadWriteFloat32(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addr, err := fins.ParseAddress("D200")
	require.NoError(t, err)

	_, err = c.Write(ctx, addr, 2, fins.EncodeFloat32Bytes(42.5))
	require.NoError(t, err)

	resp, err := c.Read(ctx, addr, 2)
	require.NoError(t, err)
	v, err := fins.DecodeFloat32Bytes(resp.Data)
	require.NoError(t, err)
	assert.Equal(t, float32(42.5), v)
}

func TestClientBitOps(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addr, err := fins.ParseAddress("D300.3")
	require.NoError(t, err)

	require.NoError(t, c.SetBit(ctx, addr))
	require.NoError(t, c.ToggleBit(ctx, addr))

	word := fins.WordAddress("D", 300)
	resp, err := c.Read(ctx, word, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, resp.Data)
}

func TestClientRawBitAreaReadWrite(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addr := fins.BitAddress("D", 50, 2)
	_, err := c.Write(ctx, addr, 1, []byte{0x01})
	require.NoError(t, err)

	resp, err := c.Read(ctx, addr, 1)
	require.NoError(t, err)
	require.True(t, resp.Succeeded())
	assert.Equal(t, []byte{0x01}, resp.Data)
}

func TestClientStatusRunStop(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Stop(ctx)
	require.NoError(t, err)

	status, err := c.ReadStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsStopped())

	_, err = c.Run(ctx)
	require.NoError(t, err)

	status, err = c.ReadStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsRunning())
}

func TestClientReadClock(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	reading, err := c.ReadClock(ctx)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Year(), reading.Time().Year(), 1)
}

func TestClientAddressRangeExceeded(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addr := fins.WordAddress("D", 60000)
	resp, err := c.Read(ctx, addr, 1)
	require.NoError(t, err)
	assert.False(t, resp.Succeeded())
}

func TestClientQueueCount(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	assert.Equal(t, 0, c.QueueCount())

	ctx := context.Background()
	addr, err := fins.ParseAddress("D1")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := c.Read(ctx, addr, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, c.QueueCount())
}

func TestClientStatsAfterRequests(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx := context.Background()
	addr, err := fins.ParseAddress("D1")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := c.Read(ctx, addr, 1)
		require.NoError(t, err)
	}

	stats := c.Stats()
	assert.Equal(t, 3, stats.SampleCount)
	assert.GreaterOrEqual(t, stats.AverageRoundTrip, time.Duration(0))
}

func TestClientReadDecodesWords(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addr, err := fins.ParseAddress("D0")
	require.NoError(t, err)

	_, err = c.Write(ctx, addr, 2, []byte{0x00, 0x0A, 0x00, 0x14})
	require.NoError(t, err)

	resp, err := c.Read(ctx, addr, 2)
	require.NoError(t, err)
	require.True(t, resp.Succeeded())
	assert.Equal(t, []int16{10, 20}, resp.Words)
	assert.Nil(t, resp.Bools)
}

func TestClientReadDecodesBits(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addr := fins.BitAddress("D", 50, 2)
	_, err := c.Write(ctx, addr, 1, []byte{0x01})
	require.NoError(t, err)

	resp, err := c.Read(ctx, addr, 1)
	require.NoError(t, err)
	require.True(t, resp.Succeeded())
	assert.Equal(t, []bool{true}, resp.Bools)
	assert.Nil(t, resp.Words)
}

func TestClientReadMultiple(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	wordAddr, err := fins.ParseAddress("D10")
	require.NoError(t, err)
	_, err = c.Write(ctx, wordAddr, 1, []byte{0x00, 0x2A})
	require.NoError(t, err)

	bitAddr := fins.BitAddress("D", 20, 1)
	_, err = c.Write(ctx, bitAddr, 1, []byte{0x01})
	require.NoError(t, err)

	resp, err := c.ReadMultiple(ctx, []fins.MemoryAddress{wordAddr, bitAddr})
	require.NoError(t, err)
	require.True(t, resp.Succeeded())
	require.Len(t, resp.MultiValues, 2)
	assert.False(t, resp.MultiValues[0].IsBit)
	assert.Equal(t, int16(42), resp.MultiValues[0].Word)
	assert.True(t, resp.MultiValues[1].IsBit)
	assert.True(t, resp.MultiValues[1].Bool)
}

func TestClientCPUUnitDataRead(t *testing.T) {
	_, host, port := startSimulator(t)
	c := dialClient(t, host, port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := c.CPUUnitDataRead(ctx)
	require.NoError(t, err)
	require.True(t, resp.Succeeded())
	require.NotNil(t, resp.CPUUnitData)
	assert.Equal(t, "FINSGO-SIM", resp.CPUUnitData.Model)
	for _, mounted := range resp.CPUUnitData.CPUBusUnits {
		assert.False(t, mounted)
	}
}

func TestClientUnreachableHostFails(t *testing.T) {
	_, err := fins.NewClient("127.0.0.1", fins.WithPort(1), fins.WithTimeout(200*time.Millisecond))
	assert.Error(t, err)
}
