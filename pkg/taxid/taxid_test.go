package taxid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/preventa/pkg/taxid"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"12.345.678/0001-99": "12345678000199",
		"12345678000199":     "12345678000199",
		" 900.123.456-7 ":    "9001234567",
	}
	for in, want := range cases {
		got, err := taxid.Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := taxid.Normalize("sin-digitos")
	assert.Error(t, err)
}

func TestValidateCNPJ(t *testing.T) {
	assert.NoError(t, taxid.ValidateCNPJ("12.345.678/0001-95"))
	assert.Error(t, taxid.ValidateCNPJ("12.345.678/0001-99"), "dígitos verificadores incorrectos")
	assert.Error(t, taxid.ValidateCNPJ("11111111111111"), "dígitos repetidos")
	assert.Error(t, taxid.ValidateCNPJ("123"), "longitud")
}

func TestComputeCNPJCheckDigits(t *testing.T) {
	d, err := taxid.ComputeCNPJCheckDigits("123456780001")
	require.NoError(t, err)
	assert.Equal(t, "95", d)
}
