package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrAmountTooLarge = fmt.Errorf("%w: exceeds maximum allowed", ErrInvalidAmount)
	ErrAmountTooSmall = fmt.Errorf("%w: below minimum allowed", ErrInvalidAmount)
)

// Validation constants
const (
	MaxAmount           = "100000000" // 100 million
	MinAmount           = "0.01"
	AmountScale         = 2
	MaxDescriptionLen   = 255
	MaxAccountNameLen   = 128
	MaxBankNameLen      = 128
	MaxReasonLen        = 500
	DefaultPageSize     = 20
	MaxPageSize         = 100
	MaxAccountNumberLen = 34
)

var accountNumberRegex = regexp.MustCompile(`^[0-9A-Za-z]{6,34}$`)

// ValidateAmount checks bounds and precision of a money amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, AmountScale)
	}

	minAmount, _ := decimal.NewFromString(MinAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinAmount)
	}

	maxAmount, _ := decimal.NewFromString(MaxAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}

	return nil
}

// ParseAmount parses a decimal string and validates it.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// Validate checks payout details before funds are reserved.
func (p PayoutDetails) Validate() error {
	bank := strings.TrimSpace(p.BankName)
	name := strings.TrimSpace(p.AccountName)
	number := strings.TrimSpace(p.AccountNumber)

	switch {
	case bank == "" || len(bank) > MaxBankNameLen:
		return fmt.Errorf("%w: bank name is required", ErrInvalidPayoutDetails)
	case name == "" || len(name) > MaxAccountNameLen:
		return fmt.Errorf("%w: account name is required", ErrInvalidPayoutDetails)
	case !accountNumberRegex.MatchString(number):
		return fmt.Errorf("%w: account number must be 6-%d alphanumeric characters", ErrInvalidPayoutDetails, MaxAccountNumberLen)
	}

	return nil
}

// ValidateDescription bounds free text stored on journal entries.
func ValidateDescription(s string) error {
	if len(s) > MaxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidRequest, MaxDescriptionLen)
	}
	return nil
}

// ValidatePagination clamps pagination parameters.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
