package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// udpListener collects datagrams sent to a loopback UDP socket.
func udpListener(t *testing.T) (*net.UDPConn, string) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, conn.LocalAddr().String()
}

func readLine(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestClient_Count(t *testing.T) {
	listener, addr := udpListener(t)

	client, err := NewClient(Config{Enabled: true, Address: addr, Prefix: "scribeflow"})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	client.Count("job.finished", 1, map[string]string{"result": "completed", "model": "medium"})

	assert.Equal(t, "scribeflow.job.finished:1|c|#model:medium,result:completed", readLine(t, listener))
}

func TestClient_GaugeAndTiming(t *testing.T) {
	listener, addr := udpListener(t)

	client, err := NewClient(Config{Enabled: true, Address: addr})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	client.Gauge("job.segments", 4, nil)
	assert.Equal(t, "job.segments:4|g", readLine(t, listener))

	client.Timing("job.duration", 1500*time.Millisecond, nil)
	assert.Equal(t, "job.duration:1500|ms", readLine(t, listener))
}

func TestClient_GlobalTagsMergeWithLocal(t *testing.T) {
	listener, addr := udpListener(t)

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    addr,
		GlobalTags: map[string]string{"env": "test", "result": "global"},
	})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	// Local tags win on key collision; keys are emitted sorted.
	client.Count("segment.retry", 1, map[string]string{"result": "local"})
	assert.Equal(t, "segment.retry:1|c|#env:test,result:local", readLine(t, listener))
}

func TestClient_DisabledDropsEverything(t *testing.T) {
	client, err := NewClient(Config{Enabled: false, Address: "localhost:8125"})
	require.NoError(t, err)

	// Must not panic or block without a connection.
	client.Count("job.finished", 1, nil)
	client.Gauge("job.segments", 1, nil)
	assert.NoError(t, client.Close())
}

func TestClient_NilIsSafe(t *testing.T) {
	var client *Client
	client.Count("job.finished", 1, nil)
	client.Timing("job.duration", time.Second, nil)
	assert.NoError(t, client.Close())
}
