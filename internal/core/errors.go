package core

import "errors"

// Validation failures. These are user-correctable: the mutation that raised
// one has not touched any state.
var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidDate           = errors.New("invalid date")
	ErrBlankName             = errors.New("name cannot be blank")
	ErrMissingAccount        = errors.New("account reference is required")
	ErrMissingCategory       = errors.New("category reference is required")
	ErrCategoryTypeMismatch  = errors.New("category type does not match loan type")
	ErrEmptyCategorySet      = errors.New("budget requires at least one category")
	ErrDuplicateCategoryPair = errors.New("duplicate category pair")
	ErrExceedsBalance        = errors.New("payment exceeds remaining balance")
	ErrLoanPaidOff           = errors.New("loan is already paid off")
	ErrDefaultCategory       = errors.New("default categories cannot be deleted")
	ErrUnknownFrequency      = errors.New("unknown frequency")
	ErrUnknownKind           = errors.New("unknown entity kind")
	ErrNotFound              = errors.New("not found")
	ErrAccountInUse          = errors.New("account is referenced by a loan")
)

// IsValidation reports whether err is a user-correctable validation failure,
// as opposed to an invariant violation or a store error.
func IsValidation(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidAmount, ErrInvalidDate, ErrBlankName,
		ErrMissingAccount, ErrMissingCategory, ErrCategoryTypeMismatch,
		ErrEmptyCategorySet, ErrDuplicateCategoryPair,
		ErrExceedsBalance, ErrLoanPaidOff, ErrDefaultCategory,
		ErrUnknownFrequency, ErrUnknownKind, ErrAccountInUse,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
