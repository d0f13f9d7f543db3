// Package taxid normaliza y valida identificadores tributarios de empresas (CNPJ, NIT).
// El identificador normalizado (solo dígitos) es la clave del tenant en todo el motor:
// nombra el archivo de base de datos local y el directorio de imágenes.
package taxid

import (
	"fmt"
	"unicode"
)

// pesos del módulo 11 para los dos dígitos verificadores del CNPJ.
var (
	cnpjWeights1 = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Normalize devuelve solo los dígitos del identificador ("12.345.678/0001-99" -> "12345678000199").
// Retorna error si no queda ningún dígito.
func Normalize(taxID string) (string, error) {
	digits := extractDigits(taxID)
	if len(digits) == 0 {
		return "", fmt.Errorf("taxid: identificador %q sin dígitos", taxID)
	}
	return string(digits), nil
}

// MustNormalize es Normalize para valores ya validados (tests, constantes).
func MustNormalize(taxID string) string {
	n, err := Normalize(taxID)
	if err != nil {
		panic(err)
	}
	return n
}

// ValidateCNPJ valida los dos dígitos verificadores de un CNPJ de 14 dígitos
// (con o sin puntuación).
func ValidateCNPJ(taxID string) error {
	digits := extractDigits(taxID)
	if len(digits) != 14 {
		return fmt.Errorf("taxid: CNPJ debe tener 14 dígitos, se encontraron %d", len(digits))
	}
	allEqual := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return fmt.Errorf("taxid: CNPJ con dígitos repetidos no es válido")
	}
	d1 := checkDigit(digits[:12], cnpjWeights1[:])
	d2 := checkDigit(append(append([]byte{}, digits[:12]...), d1), cnpjWeights2[:])
	if digits[12] != d1 || digits[13] != d2 {
		return fmt.Errorf("taxid: dígitos verificadores del CNPJ inválidos: esperado %c%c, recibido %c%c",
			d1, d2, digits[12], digits[13])
	}
	return nil
}

// ComputeCNPJCheckDigits calcula los dos dígitos verificadores para los 12 primeros dígitos.
func ComputeCNPJCheckDigits(taxID string) (string, error) {
	digits := extractDigits(taxID)
	if len(digits) < 12 {
		return "", fmt.Errorf("taxid: se requieren al menos 12 dígitos, se encontraron %d", len(digits))
	}
	base := append([]byte{}, digits[:12]...)
	d1 := checkDigit(base, cnpjWeights1[:])
	d2 := checkDigit(append(base, d1), cnpjWeights2[:])
	return string([]byte{d1, d2}), nil
}

func checkDigit(digits []byte, weights []int) byte {
	var sum int
	for i, d := range digits {
		sum += int(d-'0') * weights[i]
	}
	remainder := sum % 11
	if remainder < 2 {
		return '0'
	}
	return byte('0' + (11 - remainder))
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			out = append(out, byte(r))
		}
	}
	return out
}
