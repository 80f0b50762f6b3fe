// Package vietqr encodes bank-transfer payment payloads in the EMV merchant
// presented QR layout used by Vietnamese banking apps.
package vietqr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"brewpos/internal/model"

	"github.com/shopspring/decimal"
)

// Field tags, in the order they are emitted.
const (
	TagFormat         = "00"
	TagInitiation     = "01"
	TagCountry        = "58"
	TagCurrency       = "53"
	TagAmount         = "54"
	TagMerchantName   = "59"
	TagMerchantCity   = "60"
	TagAdditionalData = "62"
	TagCRC            = "63"

	// SubTagDescription is the bill number/description field inside TagAdditionalData.
	SubTagDescription = "08"
)

const (
	formatIndicator   = "01"
	dynamicInitiation = "12"
	CountryCode       = "VN"
	CurrencyVND       = "704"
	MerchantCity      = "HANOI"

	maxValueLen = 99
	crcPrefix   = TagCRC + "04"
)

// MaxDescriptionLen keeps the description's sub-field inside the 99 character
// limit of the additional data field.
const MaxDescriptionLen = maxValueLen - 4

var (
	ErrFieldTooLong      = errors.New("vietqr: field value longer than 99 characters")
	ErrInvalidAmount     = errors.New("vietqr: amount must be positive")
	ErrIncompleteProfile = errors.New("vietqr: payment profile has no account holder")
	ErrMalformed         = errors.New("vietqr: malformed payload")
	ErrChecksum          = errors.New("vietqr: checksum mismatch")
)

// Field is one decoded TAG-LEN-VALUE element.
type Field struct {
	Tag   string
	Value string
}

// Encode builds the payload for a transfer of amount to profile's account.
// The account holder and description are folded to ASCII so every declared
// length counts bytes as well as characters.
func Encode(profile *model.PaymentProfile, amount decimal.Decimal, description string) (string, error) {
	if profile == nil {
		return "", ErrIncompleteProfile
	}
	holder := strings.TrimSpace(Fold(profile.AccountHolder))
	if holder == "" {
		return "", ErrIncompleteProfile
	}
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	desc, err := tlv(SubTagDescription, Fold(description))
	if err != nil {
		return "", fmt.Errorf("description: %w", err)
	}

	fields := []Field{
		{TagFormat, formatIndicator},
		{TagInitiation, dynamicInitiation},
		{TagCountry, CountryCode},
		{TagCurrency, CurrencyVND},
		{TagAmount, amount.String()},
		{TagMerchantName, holder},
		{TagMerchantCity, MerchantCity},
		{TagAdditionalData, desc},
	}

	var b strings.Builder
	for _, f := range fields {
		s, err := tlv(f.Tag, f.Value)
		if err != nil {
			return "", fmt.Errorf("tag %s: %w", f.Tag, err)
		}
		b.WriteString(s)
	}
	b.WriteString(crcPrefix)
	b.WriteString(checksum(b.String()))
	return b.String(), nil
}

// Decode splits a payload into its top-level fields. It does not check the CRC.
func Decode(payload string) ([]Field, error) {
	var out []Field
	rest := payload
	for rest != "" {
		if len(rest) < 4 {
			return nil, ErrMalformed
		}
		tag := rest[:2]
		n, err := strconv.Atoi(rest[2:4])
		if err != nil {
			return nil, fmt.Errorf("%w: length of tag %s", ErrMalformed, tag)
		}
		rest = rest[4:]
		value, tail, ok := cutRunes(rest, n)
		if !ok {
			return nil, fmt.Errorf("%w: tag %s truncated", ErrMalformed, tag)
		}
		out = append(out, Field{Tag: tag, Value: value})
		rest = tail
	}
	return out, nil
}

// Verify recomputes the trailing checksum of payload.
func Verify(payload string) error {
	if len(payload) < len(crcPrefix)+4 {
		return ErrMalformed
	}
	body, sum := payload[:len(payload)-4], payload[len(payload)-4:]
	if !strings.HasSuffix(body, crcPrefix) {
		return ErrMalformed
	}
	if checksum(body) != strings.ToUpper(sum) {
		return ErrChecksum
	}
	return nil
}

// Lookup returns the value of the first field with tag.
func Lookup(fields []Field, tag string) (string, bool) {
	for _, f := range fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

func tlv(tag, value string) (string, error) {
	n := utf8.RuneCountInString(value)
	if n > maxValueLen {
		return "", ErrFieldTooLong
	}
	return fmt.Sprintf("%s%02d%s", tag, n, value), nil
}

func checksum(s string) string {
	return fmt.Sprintf("%04X", CRC16([]byte(s)))
}

// cutRunes splits s after n runes.
func cutRunes(s string, n int) (string, string, bool) {
	i := 0
	for ; n > 0; n-- {
		if i >= len(s) {
			return "", "", false
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], s[i:], true
}
