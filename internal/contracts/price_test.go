package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrice(t *testing.T) {
	assert.Equal(t, 12.345, NormalizePrice(123450))
	assert.Equal(t, 0.0, NormalizePrice(0))
	assert.Equal(t, 0.0001, NormalizePrice(1))
}

func TestNormalizePriceValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  float64
	}{
		{"int64", int64(123450), 12.345},
		{"int32", int32(123450), 12.345},
		{"float64", float64(123450), 12.345},
		{"string", "123450", 12.345},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePriceValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizePriceValue(struct{}{})
	assert.Error(t, err)
}

func TestExchangeMIC(t *testing.T) {
	mic, err := ExchangeMIC("sh")
	require.NoError(t, err)
	assert.Equal(t, MICShanghai, mic)

	mic, err = ExchangeMIC("SZ")
	require.NoError(t, err)
	assert.Equal(t, MICShenzhen, mic)

	mic, err = ExchangeMIC("")
	require.NoError(t, err)
	assert.Equal(t, "", mic)

	_, err = ExchangeMIC("NYSE")
	assert.ErrorIs(t, err, ErrConfiguration)

	assert.Equal(t, "000001.SH", SecurityCode(1, "sh"))
	code, exch := SplitSecurityCode("600000.SH")
	assert.Equal(t, "600000", code)
	assert.Equal(t, "SH", exch)
}

func TestSecurityCodes(t *testing.T) {
	tests := []struct {
		ticker int
		want   string
	}{
		{1, "000001.SZ"},
		{300750, "300750.SZ"},
		{600000, "600000.SH"},
		{688981, "688981.SH"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SecurityCode(tt.ticker, TickerExchange(tt.ticker)))
	}

	assert.Equal(t, "600000.SH", WindCode("600000.XSHG"))
	assert.Equal(t, "000001.SZ", WindCode("000001.XSHE"))
	assert.Equal(t, "000001.SZ", WindCode("000001.SZ"))
	assert.Equal(t, "IF2003.CCFX", WindCode("IF2003.CCFX"))

	code, exch := SplitSecurityCode("600000.sh")
	assert.Equal(t, "600000", code)
	assert.Equal(t, "SH", exch)
}
