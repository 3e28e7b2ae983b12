package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermail/internal"
)

func TestPrepworxShipmentNumber(t *testing.T) {
	cases := []struct {
		subject string
		want    string
	}{
		{subject: "Inbound P12345 has been processed", want: "P12345"},
		{subject: "Inbound ABC-12 has been processed", want: "ABC-12"},
		{subject: "Inbound 12345 - XY has been processed", want: "12345 - XY"},
		{subject: "Fwd: Inbound P999", want: "P999"},
	}
	src, err := NewRegistry(nil).Get("prepworx")
	require.NoError(t, err)
	for _, tc := range cases {
		t.Run(tc.subject, func(t *testing.T) {
			page, err := NewPage(internal.Document{Subject: tc.subject})
			require.NoError(t, err)
			assert.Equal(t, tc.want, firstID(page, src.IDRules))
		})
	}
}

const prepworxHTML = `<html><body>
<p>Inbound P12345 has been processed</p>
<table>
<tr><th>Item</th><th>Amount</th></tr>
<tr><td>Nike Air Max 270 GS Black/Orange/Red 6.5 943345-037 - B0DJDXB819</td><td>2</td></tr>
<tr><td>Adidas Samba OG 10 - B0ABCDEFGH</td><td>-1</td></tr>
<tr><td>Adidas Samba OG 10 - B0ABCDEFGH</td><td>0</td></tr>
<tr><td colspan="2">Total</td></tr>
</table></body></html>`

func TestPrepworxTableKeepsAdjustments(t *testing.T) {
	order := extract(t, "prepworx", internal.Document{
		Sender:  "PrepWorx <beta@prepworx.io>",
		Subject: "Inbound P12345 has been processed",
		HTML:    prepworxHTML,
	})
	assert.Equal(t, internal.KindShipment, order.Kind)
	assert.Equal(t, "P12345", order.OrderNumber)
	require.Len(t, order.Items, 3)
	assert.Equal(t, internal.ItemExtract{
		MerchantItemID: "B0DJDXB819",
		Size:           "6.5",
		Quantity:       2,
		DisplayName:    "Nike Air Max 270 GS Black/Orange/Red 6.5 943345-037",
	}, order.Items[0])
	assert.Equal(t, -1, order.Items[1].Quantity)
	assert.Equal(t, "10", order.Items[1].Size)
	assert.Equal(t, 0, order.Items[2].Quantity)
}

func TestPrepworxTableMissingAmountDefaultsToOne(t *testing.T) {
	body := `<html><body><table>
<tr><th>Item</th><th>Amount</th></tr>
<tr><td>Adidas Samba OG 10 - B0ABCDEFGH</td><td></td></tr>
<tr><td>Nike Dunk Low 9 - B0ZZZZZZZZ</td><td>1</td></tr>
<tr><td>Nike Dunk Low 9 - B0YYYYYYYY</td><td>two</td></tr>
</table></body></html>`
	order := extract(t, "prepworx", internal.Document{
		Sender:  "beta@prepworx.io",
		Subject: "Inbound P12345 has been processed",
		HTML:    body,
	})
	require.Len(t, order.Items, 2)
	assert.Equal(t, "B0ABCDEFGH", order.Items[0].MerchantItemID)
	assert.Equal(t, 1, order.Items[0].Quantity)
	assert.Equal(t, "B0ZZZZZZZZ", order.Items[1].MerchantItemID)
}

func TestPrepworxTextFallback(t *testing.T) {
	text := "Inbound P777 has been processed\n" +
		"AbCdEfGhIjKlMnOpQrSt\n" +
		"8/19/2025, 5:20:54 PM +00:00\n" +
		"Item\tAmount\n" +
		"Jordan 1 Low Panda 9.5 - B0AAAAAAAA\t3\n" +
		"Kids&#39; Runner 4 - B0BBBBBBBB 1\n"
	order := extract(t, "prepworx", internal.Document{
		Sender:  "beta@prepworx.io",
		Subject: "Inbound P777 has been processed",
		Text:    text,
	})
	require.Len(t, order.Items, 2)
	assert.Equal(t, "B0AAAAAAAA", order.Items[0].MerchantItemID)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, "9.5", order.Items[0].Size)
	assert.Equal(t, "Kids' Runner 4", order.Items[1].DisplayName)
	assert.Equal(t, 1, order.Items[1].Quantity)
	assert.Equal(t, "AbCdEfGhIjKlMnOpQrSt", order.SecondaryCode)
	assert.Equal(t, "8/19/2025, 5:20:54 PM +00:00", order.ProcessedAt)
}

func TestSizeFromName(t *testing.T) {
	cases := map[string]string{
		"Nike Air Max 270 GS Black/Orange/Red 6.5 943345-037": "6.5",
		"Adidas Samba OG 10":                                  "10",
		"Crocs Classic Clog":                                  "",
		"Size 16 boots extra long name tokens":                "",
		"New Balance 550 White-Green-12":                      "12",
	}
	for in, want := range cases {
		assert.Equal(t, want, SizeFromName(in), in)
	}
}
