package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/preventa/pkg/jwt"
)

const (
	testSecret = "test-secret-key-for-unit-tests"
	testTenant = "12345678000199"
)

func TestGenerateAndParse(t *testing.T) {
	tok, err := pkgjwt.Generate(testSecret, "ana", testTenant, "V01", "preventa-test", 60)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, testTenant, claims.TenantID)
	assert.Equal(t, "V01", claims.SalespersonCode)
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := pkgjwt.Generate(testSecret, "ana", testTenant, "", "preventa-test", 60)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := pkgjwt.Generate(testSecret, "ana", testTenant, "", "preventa-test", -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testSecret, tok)
	assert.Error(t, err)
}

func TestExpiresAt_SinVerificarFirma(t *testing.T) {
	tok, err := pkgjwt.Generate(testSecret, "ana", testTenant, "", "preventa-test", 30)
	require.NoError(t, err)

	exp, ok, err := pkgjwt.ExpiresAt(tok)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, time.Minute)

	_, _, err = pkgjwt.ExpiresAt("no-es-un-token")
	assert.Error(t, err)
}
