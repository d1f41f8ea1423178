package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/OdenLounge/Oden-Lounge/internal/models"
)

// referenceSpace is 36^10, the number of distinct reference numbers.
var referenceSpace = new(big.Int).Exp(big.NewInt(36), big.NewInt(models.ReferenceLength), nil)

// ReferenceGenerator returns a new candidate reference number.
type ReferenceGenerator func() (string, error)

// NewReference draws a uniformly random 10-character upper-case base-36 code.
func NewReference() (string, error) {
	n, err := rand.Int(rand.Reader, referenceSpace)
	if err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	code := strings.ToUpper(n.Text(36))
	if len(code) < models.ReferenceLength {
		code = strings.Repeat("0", models.ReferenceLength-len(code)) + code
	}
	return code, nil
}
