package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermail/internal"
)

func TestClassify(t *testing.T) {
	reg := NewRegistry(nil)

	src, err := reg.Classify(internal.Document{Sender: "Foot Locker <accountservices@em.footlocker.com>", Subject: "Thank you for your order!"})
	require.NoError(t, err)
	assert.Equal(t, "footlocker", src.Name)

	src, err = reg.Classify(internal.Document{Sender: "PrepWorx <beta@prepworx.io>", Subject: "Inbound P1 has been processed"})
	require.NoError(t, err)
	assert.Equal(t, "prepworx", src.Name)

	src, err = reg.Classify(internal.Document{Sender: "deals@em.footlocker.com", Subject: "Weekend sale"})
	assert.ErrorIs(t, err, internal.ErrNotConfirmation)
	assert.Equal(t, "footlocker", src.Name)

	_, err = reg.Classify(internal.Document{Sender: "friend@example.com", Subject: "Thank you for your order"})
	assert.ErrorIs(t, err, internal.ErrNotMine)
}

func TestClaimsExactAddressOrPattern(t *testing.T) {
	src, err := NewRegistry(nil).Get("dicks")
	require.NoError(t, err)
	assert.True(t, src.Claims(internal.Document{Sender: "from@notifications.dcsg.com"}))
	assert.True(t, src.Claims(internal.Document{Sender: "DICKS Sporting Goods <other@mail.example.com>"}))
	assert.False(t, src.Claims(internal.Document{Sender: ""}))
}

func TestGetUnknownSource(t *testing.T) {
	_, err := NewRegistry(nil).Get("nope")
	assert.ErrorIs(t, err, internal.ErrUnknownSource)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	blob := `sources:
  footlocker:
    window: 5
    senders: [orders@fl.example.com]
    sizes: {min: 3, max: 16}
  snipes:
    disabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(blob), 0o644))

	reg := NewRegistry(nil)
	require.NoError(t, reg.LoadOverrides(path))

	fl, err := reg.Get("footlocker")
	require.NoError(t, err)
	assert.Equal(t, 5, fl.Window)
	assert.Contains(t, fl.Query.From, "orders@fl.example.com")
	assert.True(t, fl.Claims(internal.Document{Sender: "orders@fl.example.com"}))
	assert.False(t, fl.Sizes.Accepts("17"))

	_, err = reg.Get("snipes")
	assert.ErrorIs(t, err, internal.ErrUnknownSource)
	assert.NotContains(t, reg.Names(), "snipes")

	assert.NoError(t, reg.LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestOverrideUnknownSource(t *testing.T) {
	err := NewRegistry(nil).Apply(map[string]Override{"bogus": {Window: 2}})
	assert.ErrorIs(t, err, internal.ErrUnknownSource)
}
