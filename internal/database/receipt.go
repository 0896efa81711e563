package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const receiptIssuer = "sos2a-intake"

// ErrInvalidReceipt is returned for tokens that fail signature or claim checks
var ErrInvalidReceipt = errors.New("invalid receipt")

// ReceiptClaims are carried by a submission receipt
type ReceiptClaims struct {
	AssessmentID string `json:"assessment_id"`
	Revision     int    `json:"revision"`
	Digest       string `json:"digest"`
	jwt.RegisteredClaims
}

// ReceiptSigner issues and verifies HS256 submission receipts
type ReceiptSigner struct {
	secret []byte
}

// NewReceiptSigner creates a signer for the given secret
func NewReceiptSigner(secret string) *ReceiptSigner {
	return &ReceiptSigner{secret: []byte(secret)}
}

// Issue signs a receipt for one submitted revision. Receipts do not expire.
func (s *ReceiptSigner) Issue(assessmentID string, revision int, digest string, now time.Time) (string, error) {
	claims := ReceiptClaims{
		AssessmentID: assessmentID,
		Revision:     revision,
		Digest:       digest,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   receiptIssuer,
			Subject:  assessmentID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign receipt: %w", err)
	}
	return tokenString, nil
}

// Verify checks the signature and returns the receipt claims
func (s *ReceiptSigner) Verify(tokenString string) (*ReceiptClaims, error) {
	claims := &ReceiptClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(receiptIssuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	if !token.Valid {
		return nil, ErrInvalidReceipt
	}
	return claims, nil
}
