// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package fupsim

import "github.com/pkg/errors"

// Variable store errors.
var (
	ErrDuplicateName   = errors.New("duplicate variable name")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrEmptyName       = errors.New("empty variable name")
	ErrKindMismatch    = errors.New("variable kind not compatible with port direction")
)

// Wire errors. No wire is created when one of these is returned.
var (
	ErrDirectionMismatch = errors.New("a wire must connect an output port to an input port")
	ErrSameGate          = errors.New("cannot wire two ports of the same gate")
	ErrDuplicateWire     = errors.New("ports already connected")
	ErrPortDriven        = errors.New("input port already has an incoming wire")
	ErrCrossNetwork      = errors.New("cannot wire gates of different networks")
	ErrCombinationalLoop = errors.New("wire would close a combinational loop")
)

// Gate and editor errors.
var (
	ErrUnboundWrite    = errors.New("write to an input port")
	ErrArity           = errors.New("invalid input count")
	ErrNotTimePort     = errors.New("not a time constant port")
	ErrBadTimeConstant = errors.New("malformed time constant")
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrUnknownKind     = errors.New("unknown gate kind")
)
