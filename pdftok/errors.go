// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pdftok

import (
	goerrors "errors"

	"github.com/pkg/errors"
)

// Eos is returned by Lexer.Finish on a clean end of input it is never wrapped
// so callers compare it with errors.Is rather than type-asserting on Err
var Eos = goerrors.New("eos")

// Reason enumerates the PDF grammar violations the lexer can surface §7
type Reason string

const (
	StreamNoLength              Reason = "STREAM_NO_LENGTH"
	IncompleteArrayInDictionary Reason = "INCOMPLETE_ARRAY_IN_DICTIONARY"
	NotNameInDictionaryKey      Reason = "NOT_NAME_IN_DICTIONARY_KEY"
	UnexpectedSymbol            Reason = "UNEXPECTED_SYMBOL"
)

// Err wraps a Reason with a stack trace exactly like the wider module's
// pkg/errors-based newError helpers so %+v formatting stays useful in logs
type Err struct {
	Reason Reason
	cause  error
}

func (e *Err) Error() string {
	return e.cause.Error()
}

func (e *Err) Unwrap() error {
	return e.cause
}

func newErr(reason Reason, format string, args ...any) error {
	return &Err{Reason: reason, cause: errors.Errorf("pdftok: "+format, args...)}
}

// FatalErr is the panic value raised for implementer-assertable invariant
// failures (start-condition stack overflow, code points above 0x1FFFFF)
// §7 "FatalError used by the PDF lexer on internal invariant failure"
type FatalErr struct {
	Message string
}

func (e FatalErr) Error() string {
	return "pdftok: fatal: " + e.Message
}

func fatal(format string, args ...any) {
	panic(FatalErr{Message: errors.Errorf(format, args...).Error()})
}
