package crypto

import (
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	addr := key.PubKey().Address()
	require.Equal(t, AccountPrefix, addr.Prefix())

	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Bytes(), decoded.Bytes())
}

func TestParseAddressAcceptsHexAndBech32(t *testing.T) {
	raw, err := hex.DecodeString("c2807533832807bf15898778d8a108405e9edfb1")
	require.NoError(t, err)

	fromHex, err := ParseAddress("0xc2807533832807Bf15898778D8A108405e9edfb1")
	require.NoError(t, err)
	require.Equal(t, raw, fromHex[:])

	bech := MustNewAddress(ContractPrefix, raw).String()
	fromBech, err := ParseAddress(bech)
	require.NoError(t, err)
	require.Equal(t, fromHex, fromBech)

	_, err = ParseAddress("0x1234")
	require.Error(t, err)
	_, err = ParseAddress("")
	require.Error(t, err)
}

func TestNewAddressRejectsShortInput(t *testing.T) {
	_, err := NewAddress(AccountPrefix, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "keys", "operator.keystore")

	require.NoError(t, SaveToKeystore(path, key, "secret", ScryptLight))

	loaded, err := LoadFromKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())

	_, err = LoadFromKeystore(path, "wrong")
	require.ErrorIs(t, err, ErrWrongPassphrase)
}
