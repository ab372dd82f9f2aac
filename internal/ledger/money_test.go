package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney_ValidDecimalString(t *testing.T) {
	m, err := ParseMoney("1234.56")
	require.NoError(t, err)
	assert.Equal(t, "1234.56", m.String())
}

func TestParseMoney_RejectsGarbage(t *testing.T) {
	_, err := ParseMoney("not-a-number")
	assert.Error(t, err)
}

func TestMoney_AddAndCmp(t *testing.T) {
	a := MustMoneyFromFloat(100)
	b := MustMoneyFromFloat(50)
	sum := a.Add(b)
	assert.Equal(t, "150.00", sum.String())
	assert.Equal(t, 1, a.Cmp(b))
	assert.True(t, b.LessThanOrEqual(a))
}

func TestMoney_DivRatio_ZeroDenominator(t *testing.T) {
	a := MustMoneyFromFloat(100)
	assert.Equal(t, 0.0, a.DivRatio(Zero))
}

func TestMoney_MarshalJSON_RoundsToTwoDecimals(t *testing.T) {
	m := MustMoneyFromFloat(19.999)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, "20", string(data))
}

func TestMoney_UnmarshalJSON_AcceptsStringAndNumber(t *testing.T) {
	var fromNumber Money
	require.NoError(t, json.Unmarshal([]byte("42.5"), &fromNumber))
	assert.Equal(t, "42.50", fromNumber.String())

	var fromString Money
	require.NoError(t, json.Unmarshal([]byte(`"42.50"`), &fromString))
	assert.Equal(t, "42.50", fromString.String())

	var invalid Money
	assert.Error(t, json.Unmarshal([]byte(`"not-money"`), &invalid))
}
