package internal

import "errors"

var (
	ErrNotMine            = errors.New("document not claimed by any source")
	ErrNotConfirmation    = errors.New("sender matched but subject is not a confirmation")
	ErrIdentifierNotFound = errors.New("order identifier not found")
	ErrNoItems            = errors.New("no items extracted")
	ErrNoLead             = errors.New("no sourcing lead for merchant item")
	ErrRetailerNotFound   = errors.New("retailer not found")
	ErrDuplicateOrder     = errors.New("order already processed")
	ErrDuplicateItem      = errors.New("item already recorded")
	ErrNothingWritten     = errors.New("no items could be reconciled")
	ErrPersistence        = errors.New("persistence failure")
	ErrUnknownSource      = errors.New("unknown source")
)
