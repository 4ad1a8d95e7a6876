package manager

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation. Callers branch on the kind, not on
// the message.
type Kind string

const (
	KindInvalidName            Kind = "InvalidName"
	KindInvalidCapability      Kind = "InvalidCapability"
	KindDuplicateName          Kind = "DuplicateName"
	KindDuplicateGroupName     Kind = "DuplicateGroupName"
	KindUnknownFarmStrategy    Kind = "UnknownFarmStrategy"
	KindUnknownHarvestStrategy Kind = "UnknownHarvestStrategy"
	KindUnknownCollector       Kind = "UnknownCollector"
	KindCollectorWithoutVault  Kind = "CollectorWithoutVault"
	KindUnknownStrategyGroup   Kind = "UnknownStrategyGroup"
	KindInvalidAmount          Kind = "InvalidAmount"
	KindTransferFailed         Kind = "TransferFailed"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrInvalidName            = &Error{Kind: KindInvalidName}
	ErrInvalidCapability      = &Error{Kind: KindInvalidCapability}
	ErrDuplicateName          = &Error{Kind: KindDuplicateName}
	ErrDuplicateGroupName     = &Error{Kind: KindDuplicateGroupName}
	ErrUnknownFarmStrategy    = &Error{Kind: KindUnknownFarmStrategy}
	ErrUnknownHarvestStrategy = &Error{Kind: KindUnknownHarvestStrategy}
	ErrUnknownCollector       = &Error{Kind: KindUnknownCollector}
	ErrCollectorWithoutVault  = &Error{Kind: KindCollectorWithoutVault}
	ErrUnknownStrategyGroup   = &Error{Kind: KindUnknownStrategyGroup}
	ErrInvalidAmount          = &Error{Kind: KindInvalidAmount}
	ErrTransferFailed         = &Error{Kind: KindTransferFailed}
)

// Error is a rejected operation. The operation that returned it made no
// state change and emitted no event.
type Error struct {
	Kind   Kind
	Reason string
	// Name is the registry or group name the operation was about, if any.
	Name string
	// Err is the collaborator error behind a TransferFailed, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Name != "" {
		msg = fmt.Sprintf("%s (%q)", msg, e.Name)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Unwrap exposes the collaborator error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a rejected operation, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func rejected(kind Kind, reason, name string) *Error {
	return &Error{Kind: kind, Reason: reason, Name: name}
}
