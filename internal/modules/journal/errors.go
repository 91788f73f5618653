package journal

import "errors"

var (
	// ErrValidation marks input rejected before touching the database
	ErrValidation = errors.New("invalid trade input")
	// ErrInsertFailed marks a failed buy or sell insert
	ErrInsertFailed = errors.New("failed to insert trade")
	// ErrUpdateFailed marks a failed buy update
	ErrUpdateFailed = errors.New("failed to update trade")
	// ErrQueryFailed marks a failed read
	ErrQueryFailed = errors.New("failed to query trades")
	// ErrBuyNotFound is returned when a buy id does not exist
	ErrBuyNotFound = errors.New("buy not found")
	// ErrInsufficientQuantity is returned when a sell exceeds the quantity still available
	ErrInsufficientQuantity = errors.New("sell quantity exceeds available quantity")
)
