// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ledgererr provides classified sentinel errors shared by the
// ledger packages. Every rejection carries a stable reason code and a class
// that callers can resolve through error wrapping.
package ledgererr

import "errors"

// Class groups rejection reasons by how a caller should react to them
type Class int

const (
	ClassUnknown Class = iota
	// ClassValidation covers malformed input such as zero amounts
	ClassValidation
	// ClassAuthorization covers callers that lack the required role
	ClassAuthorization
	// ClassTemporal covers requests that are too early or too late
	ClassTemporal
	// ClassIdempotence covers repeated claims
	ClassIdempotence
	// ClassNotFound covers unknown positions
	ClassNotFound
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassAuthorization:
		return "authorization"
	case ClassTemporal:
		return "temporal"
	case ClassIdempotence:
		return "idempotence"
	case ClassNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// Error is a classified rejection. Values are compared by identity, so
// packages declare them once as sentinels.
type Error struct {
	Code  string
	msg   string
	Class Class
}

func New(class Class, code string, msg string) *Error {
	return &Error{
		Class: class,
		Code:  code,
		msg:   msg,
	}
}

func (e *Error) Error() string {
	return e.msg
}

// ClassOf returns the class of the first classified error in the chain
func ClassOf(err error) Class {
	var lErr *Error
	if errors.As(err, &lErr) {
		return lErr.Class
	}
	return ClassUnknown
}

// CodeOf returns the reason code of the first classified error in the chain
func CodeOf(err error) string {
	var lErr *Error
	if errors.As(err, &lErr) {
		return lErr.Code
	}
	return ""
}
