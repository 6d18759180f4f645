package transport_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/operators/transport"
)

func TestCipherSealOpenRoundTrip(t *testing.T) {
	salt := []byte("fixed-test-salt-")
	sender, err := transport.NewCipher([]byte("shared-secret"), salt)
	require.NoError(t, err)
	receiver, err := transport.NewCipher([]byte("shared-secret"), salt)
	require.NoError(t, err)

	box, err := sender.Seal([]byte("hello frame"))
	require.NoError(t, err)
	require.NotEqual(t, []byte("hello frame"), box)

	opened, err := receiver.Open(box)
	require.NoError(t, err)
	require.Equal(t, "hello frame", string(opened))
}

func TestCipherOpenRejectsTamperedEnvelope(t *testing.T) {
	salt := []byte("fixed-test-salt-")
	c, err := transport.NewCipher([]byte("shared-secret"), salt)
	require.NoError(t, err)

	box, err := c.Seal([]byte("hello frame"))
	require.NoError(t, err)
	box[len(box)-1] ^= 0xFF

	_, err = c.Open(box)
	require.Error(t, err)
}

func TestTopicNaming(t *testing.T) {
	require.Equal(t, "saf", transport.Topic(""))
	require.Equal(t, "saf/front_door", transport.Topic("front_door"))
}
