package transport

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/sekas-io/sekas/api/v1"
	"github.com/sekas-io/sekas/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

func TestCodecRoundTrip(t *testing.T) {
	codec := jsonCodec{}
	req := &v1.GroupRequest{
		GroupID: 1,
		Epoch:   5,
		Request: &v1.RequestUnion{Get: &v1.GetRequest{ShardID: 10, UserKey: []byte("a")}},
	}

	data, err := codec.Marshal(req)
	require.NoError(t, err)

	decoded := new(v1.GroupRequest)
	require.NoError(t, codec.Unmarshal(data, decoded))
	assert.Equal(t, req.GroupID, decoded.GroupID)
	require.NotNil(t, decoded.Request)
	assert.Equal(t, []byte("a"), decoded.Request.Get.UserKey)
}

func TestConnManagerReusesConnections(t *testing.T) {
	m := NewConnManager()
	defer m.Close()

	// Dialing is lazy; no node needs to be listening.
	first, err := m.GetNodeClient("127.0.0.1:21001")
	require.NoError(t, err)
	second, err := m.GetNodeClient("127.0.0.1:21001")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := m.GetNodeClient("127.0.0.1:21002")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestConnManagerClose(t *testing.T) {
	m := NewConnManager()
	_, err := m.GetNodeClient("127.0.0.1:21001")
	require.NoError(t, err)
	require.NoError(t, m.Close())

	// A closed manager dials fresh connections again.
	_, err = m.GetNodeClient("127.0.0.1:21001")
	assert.NoError(t, err)
}
