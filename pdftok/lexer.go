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

// Package pdftok implements a push-driven lexer over the PDF 32000-1:2008
// byte grammar. It recognises indirect objects, dictionaries, literal and
// hex strings, and streams; tracks cross-references from /JS keys to the
// indirect objects they point at; and extracts the JavaScript text found in
// those objects (whether stored as a literal string or a stream body),
// re-encoding UTF-16BE text to UTF-8 along the way.
package pdftok

import (
	"io"

	"github.com/google/uuid"

	"github.com/packetd/ids-core/bytecursor"
	"github.com/packetd/ids-core/logger"
	"github.com/packetd/ids-core/pdftok/internstr"
)

// start condition kinds §4.3
type kind int

const (
	scInitial kind = iota
	scIndObj
	scDictNr
	scLitStr
	scHexStr
	scJsLstr
	scJsHstr
	scStream
	scJsStream
)

// maxStackDepth bounds the start-condition stack §9 "fixed-capacity stack
// with a depth check; overflow is a parse error"
const maxStackDepth = 32

// maxNameLength / maxNumberDigits are PDF 32000-1:2008 §7.3 grammar limits,
// treated as security caps rather than hard spec requirements §4.3
const (
	maxNameLength   = 256
	maxNumberDigits = 16
)

// frame is one entry of the start-condition stack it carries whatever
// semantic state is scoped to that condition so the stack doubles as the
// PDFTok.Semantic context described in spec §3
type frame struct {
	k kind

	// dict frames
	arrayLevelAtOpen int
	keyValue         bool // false = expecting key, true = expecting value

	// indirect-object frames
	objID int

	// string frames
	strDepth int
	useU16   bool
	probed   bool
	probeBuf [2]byte
	probeLen int
	u16      u16State

	// stream frames
	remLength int // -1 == unknown
}

// Lexer is a single-direction, chunk-fed PDF tokenizer §4.3
type Lexer struct {
	id  uuid.UUID
	log logger.Logger
	out io.Writer

	stack      []frame
	jsRefs     map[int]bool
	names      *internstr.Cache
	arrayNr    int // current [ ] nesting level, shared across the whole document
	objsOpened int // count of "obj" keywords accepted so far

	// token accumulator for numbers/names/keywords that may span chunks
	pending []byte

	// two-integer lookahead used to recognise "n g R" / "n g obj"
	lookNums    [2]int
	lookNumsLen int

	lastKeyJS     bool // true if the dictionary key just closed was literally "JS"
	lastKeyLength bool // true if the dictionary key just closed was literally "Length"
	sawLen        int  // value captured from /Length when it is a direct integer

	// octal-escape accumulator for literal strings
	escDigits []byte
	inEscape  bool

	// hex-string nibble accumulator, reset on each openHexStr
	hexHigh     byte
	hexHaveHigh bool

	// skipLF swallows one '\n' right after "stream" consumed a '\r' so a
	// \r\n line ending before the body counts as a single EOL §4.3
	skipLF bool
	lastWS byte // most recent whitespace byte that closed a token

	finished bool
}

// NewLexer creates a Lexer writing decoded JavaScript text to out
func NewLexer(out io.Writer) *Lexer {
	id := uuid.New()
	return &Lexer{
		id:     id,
		log:    logger.Std().With("component", "pdftok.lexer", "id", id.String()),
		out:    out,
		stack:  []frame{{k: scInitial}},
		jsRefs: make(map[int]bool),
		names:  internstr.New(),
		sawLen: -1,
	}
}

// ID returns the correlation id tagging this Lexer instance
func (l *Lexer) ID() uuid.UUID { return l.id }

// JSRefs returns the set of indirect-object ids that were referenced by a
// /JS dictionary key, keyed by object number
func (l *Lexer) JSRefs() map[int]bool {
	return l.jsRefs
}

// ObjectsOpened returns the number of indirect objects accepted so far.
func (l *Lexer) ObjectsOpened() int {
	return l.objsOpened
}

func (l *Lexer) top() *frame {
	return &l.stack[len(l.stack)-1]
}

func (l *Lexer) push(f frame) {
	if len(l.stack) >= maxStackDepth {
		fatal("start-condition stack depth exceeds %d", maxStackDepth)
	}
	l.stack = append(l.stack, f)
}

func (l *Lexer) pop() frame {
	f := l.stack[len(l.stack)-1]
	l.stack = l.stack[:len(l.stack)-1]
	return f
}

// Write feeds the next chunk of the input stream to the lexer chunk
// boundaries never affect the decoded output §8 "arbitrary segmentation"
func (l *Lexer) Write(chunk []byte) error {
	if l.finished {
		return newErr(UnexpectedSymbol, "write after Finish")
	}
	c := bytecursor.New(chunk)
	for {
		b, ok := c.ReadByte()
		if !ok {
			return nil
		}
		if err := l.step(b); err != nil {
			l.log.Warnf("lexing aborted: %v", err)
			return err
		}
	}
}

// Finish signals end-of-input and returns Eos on a clean stop
func (l *Lexer) Finish() error {
	l.finished = true
	if err := l.flushPending(); err != nil {
		return err
	}
	return Eos
}

// step dispatches a single byte according to the current start condition
func (l *Lexer) step(b byte) error {
	switch l.top().k {
	case scInitial, scIndObj, scDictNr:
		return l.stepToken(b)
	case scLitStr, scJsLstr:
		return l.stepLitStr(b)
	case scHexStr, scJsHstr:
		return l.stepHexStr(b)
	case scStream, scJsStream:
		return l.stepStream(b)
	default:
		return newErr(UnexpectedSymbol, "unknown start condition")
	}
}

func isWhitespace(b byte) bool {
	switch b {
	case 0x00, 0x09, 0x0a, 0x0c, 0x0d, 0x20:
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// stepToken handles Initial/IndObj/DictNr the three states that share plain
// token-level grammar (numbers, names, keywords, delimiters)
func (l *Lexer) stepToken(b byte) error {
	// comment bodies swallow everything up to end-of-line §4.3 "% … EOL"
	if len(l.pending) > 0 && l.pending[0] == '%' {
		if b == '\n' || b == '\r' {
			l.pending = l.pending[:0]
		} else {
			l.pending = append(l.pending, b)
		}
		return nil
	}
	// a lone '<' seen on the previous byte decides between "<<" and a hex string
	if len(l.pending) == 1 && l.pending[0] == '<' {
		l.pending = l.pending[:0]
		if b == '<' {
			l.openDict()
			return nil
		}
		return l.openHexStr(b)
	}
	// a lone '>' seen on the previous byte decides whether this is ">>"
	if len(l.pending) == 1 && l.pending[0] == '>' {
		l.pending = l.pending[:0]
		if b == '>' {
			return l.closeDict()
		}
		return newErr(UnexpectedSymbol, "'>' without matching '<'")
	}

	switch {
	case b == '%':
		if err := l.flushPending(); err != nil {
			return err
		}
		l.pending = append(l.pending, '%')
		return nil
	case b == '(':
		if err := l.flushPending(); err != nil {
			return err
		}
		return l.openLitStr()
	case b == '<', b == '>':
		if err := l.flushPending(); err != nil {
			return err
		}
		l.pending = append(l.pending, b)
		return nil
	case b == '[':
		if err := l.flushPending(); err != nil {
			return err
		}
		l.arrayNr++
		return nil
	case b == ']':
		if err := l.flushPending(); err != nil {
			return err
		}
		if l.arrayNr > 0 {
			l.arrayNr--
		}
		l.valueConsumed()
		return nil
	case b == '/':
		if err := l.flushPending(); err != nil {
			return err
		}
		l.pending = append(l.pending, '/')
		return nil
	case isWhitespace(b):
		l.lastWS = b
		return l.flushPending()
	case isDelimiter(b):
		return l.flushPending()
	default:
		l.pending = append(l.pending, b)
		return nil
	}
}

// flushPending interprets the accumulated token (name, number, or keyword)
func (l *Lexer) flushPending() error {
	if len(l.pending) == 0 {
		return nil
	}
	tok := l.pending
	l.pending = nil
	if tok[0] == '%' {
		return nil
	}
	if tok[0] == '/' {
		name := tok[1:]
		if len(name) > maxNameLength {
			name = name[:maxNameLength]
		}
		return l.handleName(l.names.Intern(name))
	}
	if n, isNum := parseInt(tok); isNum {
		return l.handleNumber(n)
	}
	return l.handleKeyword(string(tok))
}

// parseInt recognises a PDF numeric token (integer or real); reals are
// reported as numeric but their fractional value is not tracked, since
// only integers participate in "n g obj" / "n g R" / "/Length n" §4.3
func parseInt(tok []byte) (int, bool) {
	if len(tok) == 0 || len(tok) > maxNumberDigits+1 {
		return 0, false
	}
	i := 0
	neg := false
	if tok[0] == '+' || tok[0] == '-' {
		neg = tok[0] == '-'
		i = 1
	}
	if i == len(tok) {
		return 0, false
	}
	n := 0
	sawDot := false
	for ; i < len(tok); i++ {
		if tok[i] == '.' {
			if sawDot {
				return 0, false
			}
			sawDot = true
			continue
		}
		if tok[i] < '0' || tok[i] > '9' {
			return 0, false
		}
		n = n*10 + int(tok[i]-'0')
	}
	if sawDot {
		return 0, true
	}
	if neg {
		n = -n
	}
	return n, true
}

// handleName processes a /Name token honouring dictionary key/value parity
func (l *Lexer) handleName(name string) error {
	l.resolveLookahead()

	f := l.top()
	if f.k == scDictNr && !f.keyValue {
		l.lastKeyJS = name == "JS"
		l.lastKeyLength = name == "Length"
		f.keyValue = true
		return nil
	}
	l.valueConsumed()
	return nil
}

// expectingKeyViolation reports whether the current dictionary expects a key,
// so any token other than a name is a NotNameInDictionaryKey violation
func (l *Lexer) expectingKeyViolation() bool {
	f := l.top()
	return f.k == scDictNr && !f.keyValue
}

// handleNumber buffers up to two consecutive integers so a later "obj"/"R"
// keyword can be recognised as an indirect-object header or reference
func (l *Lexer) handleNumber(n int) error {
	if l.expectingKeyViolation() {
		return newErr(NotNameInDictionaryKey, "number token where a dictionary key was expected")
	}
	if l.lookNumsLen >= 2 {
		// the oldest integer can no longer start "n g obj"/"n g R": keep the last two
		l.lookNums[0] = l.lookNums[1]
		l.lookNumsLen = 1
	}
	l.lookNums[l.lookNumsLen] = n
	l.lookNumsLen++
	return nil
}

// resolveLookahead treats a pending 1-2 integer lookahead that was not
// followed by "obj"/"R" as a plain numeric value/keyword, flipping dict
// key/value parity or capturing /Length as appropriate
func (l *Lexer) resolveLookahead() {
	if l.lookNumsLen == 0 {
		return
	}
	f := l.top()
	if f.k == scDictNr && f.keyValue && l.lastKeyLength {
		l.sawLen = l.lookNums[l.lookNumsLen-1]
	}
	l.valueConsumed()
	l.lookNumsLen = 0
}

// handleKeyword processes obj/endobj/stream/endstream/R/true/false/null and
// closes out any pending two-integer lookahead against "obj"/"R"
func (l *Lexer) handleKeyword(kw string) error {
	if kw != "endobj" && kw != "endstream" && l.expectingKeyViolation() {
		return newErr(NotNameInDictionaryKey, "keyword %q where a dictionary key was expected", kw)
	}
	switch kw {
	case "obj":
		if l.lookNumsLen < 1 {
			return newErr(UnexpectedSymbol, "obj keyword without preceding object number")
		}
		id := l.lookNums[0]
		l.lookNumsLen = 0
		l.push(frame{k: scIndObj, objID: id})
		l.objsOpened++
		return nil
	case "endobj":
		if l.top().k != scIndObj {
			return newErr(UnexpectedSymbol, "endobj outside indirect object")
		}
		l.pop()
		return nil
	case "R":
		if l.lookNumsLen < 1 {
			return newErr(UnexpectedSymbol, "R keyword without preceding object reference")
		}
		id := l.lookNums[0]
		l.lookNumsLen = 0
		if l.lastKeyJS {
			l.jsRefs[id] = true
		}
		l.valueConsumed()
		return nil
	case "stream":
		l.resolveLookahead()
		if l.top().k != scIndObj {
			return newErr(UnexpectedSymbol, "stream keyword outside indirect object")
		}
		return l.openStream()
	case "endstream":
		return nil // consumed by stepStream before the keyword is ever buffered
	default:
		l.resolveLookahead()
		return nil
	}
}
