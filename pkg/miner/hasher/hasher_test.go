package hasher

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

func TestKeccakKnownVector(t *testing.T) {
	// keccak256(abi.encode(uint256(0)))
	d := NewKeccak256().Digest(nil, 0)
	assert.Equal(t, "290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563", d.String())
}

func TestKeccakMatchesReference(t *testing.T) {
	header := []byte("buttpluggy")
	nonce := uint64(0x0102030405060708)

	msg := append([]byte{}, header...)
	word := make([]byte, NonceWordLen)
	binary.BigEndian.PutUint64(word[24:], nonce)
	msg = append(msg, word...)

	ref := sha3.NewLegacyKeccak256()
	ref.Write(msg)
	want := ref.Sum(nil)

	got := NewKeccak256().Digest(header, nonce)
	assert.Equal(t, hex.EncodeToString(want), got.String())
}

func TestKeccakX4MatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	k := NewKeccak256()

	// Lengths around the single block limit plus a multi-block header.
	lengths := []int{0, 1, 31, 32, 64, 71, 72, 100, MaxSingleBlockHeader - 1, MaxSingleBlockHeader, MaxSingleBlockHeader + 1, 200}
	for _, n := range lengths {
		header := make([]byte, n)
		rng.Read(header)
		nonces := [4]uint64{rng.Uint64(), 0, 1, ^uint64(0)}

		var out [4]miner.Digest
		k.DigestX4(header, &nonces, &out)
		for i, nonce := range nonces {
			assert.Equal(t, k.Digest(header, nonce), out[i], "header len %d lane %d", n, i)
		}
	}
}

func TestKeccakBlockLayout(t *testing.T) {
	header := []byte{0xaa, 0xbb}
	block := KeccakBlock(header)
	assert.Equal(t, byte(0xaa), block[0])
	assert.Equal(t, byte(0xbb), block[1])
	for i := 2; i < 2+NonceWordLen; i++ {
		assert.Zero(t, block[i], "nonce word byte %d", i)
	}
	assert.Equal(t, byte(0x01), block[2+NonceWordLen])
	assert.Equal(t, byte(0x80), block[KeccakRate-1])

	full := KeccakBlock(make([]byte, MaxSingleBlockHeader))
	assert.Equal(t, byte(0x81), full[KeccakRate-1], "padding bytes share the last position")
}

func TestSHA256dMatchesReference(t *testing.T) {
	header := make([]byte, 76)
	header[0] = 1
	nonce := uint64(2083236893)

	msg := append([]byte{}, header...)
	msg = binary.LittleEndian.AppendUint64(msg, nonce)
	first := sha256.Sum256(msg)
	second := sha256.Sum256(first[:])

	got := NewSHA256d().Digest(header, nonce)
	for i := range second {
		assert.Equal(t, second[len(second)-1-i], got[i], "byte %d is not reversed", i)
	}
}

func TestSHA3MatchesReference(t *testing.T) {
	header := []byte("abc")
	msg := binary.BigEndian.AppendUint64(append([]byte{}, header...), 99)
	want := sha3.Sum256(msg)
	assert.Equal(t, miner.Digest(want), NewSHA3().Digest(header, 99))
}

func TestHashersDeterministic(t *testing.T) {
	header := []byte("same input")
	for _, name := range Names() {
		h, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, h.Digest(header, 5), h.Digest(header, 5), name)
		assert.NotEqual(t, h.Digest(header, 5), h.Digest(header, 6), name)
	}
}

func TestByName(t *testing.T) {
	assert.Equal(t, []string{"keccak256", "sha256d", "sha3-256"}, Names())

	h, err := ByName("  KECCAK256 ")
	require.NoError(t, err)
	assert.Equal(t, Keccak256Name, h.Name())

	_, err = ByName("md5")
	require.Error(t, err)
	assert.True(t, miner.IsConfigError(err))

	assert.Equal(t, Keccak256Name, Default().Name())
}
