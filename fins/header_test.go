package fins_test

import (
	"testing"

	"github.com/havrevik/finsgo/fins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	tpl := fins.DefaultHeaderTemplate()
	tpl.DNA = 1
	tpl.DA1 = 10
	tpl.SA1 = 2

	hdr := tpl.Header(42)
	encoded := hdr.Encode()
	require.Len(t, encoded, 10)

	decoded, err := fins.DecodeHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, hdr, decoded)
	assert.Equal(t, uint8(42), decoded.SID)
	assert.True(t, decoded.IsCommand())
	assert.True(t, decoded.IsResponseRequired())
}

func TestHeaderTemplateApplyOverride(t *testing.T) {
	tpl := fins.DefaultHeaderTemplate()
	tpl.DNA, tpl.DA1, tpl.DA2 = 0, 10, 0

	newDA1 := uint8(20)
	overridden := tpl.Apply(&fins.RoutingOverride{DA1: &newDA1})
	assert.Equal(t, uint8(20), overridden.DA1)
	assert.Equal(t, uint8(10), tpl.DA1, "original template must not mutate")
}

func TestDecodeHeaderTruncated(t *testing.T) {
	_, err := fins.DecodeHeader([]byte{1, 2, 3})
	assert.Error(t, err)
}
