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
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedWhole writes an entire document in one Write call and returns the
// decoded JS output.
func feedWhole(t *testing.T, doc []byte) (*bytes.Buffer, error) {
	t.Helper()
	var out bytes.Buffer
	l := NewLexer(&out)
	if err := l.Write(doc); err != nil {
		return &out, err
	}
	return &out, l.Finish()
}

// feedSplit writes doc one byte at a time, exercising the lexer's tolerance
// for arbitrary chunk segmentation.
func feedSplit(t *testing.T, doc []byte) (*bytes.Buffer, error) {
	t.Helper()
	var out bytes.Buffer
	l := NewLexer(&out)
	for i := range doc {
		if err := l.Write(doc[i : i+1]); err != nil {
			return &out, err
		}
	}
	return &out, l.Finish()
}

// Object 5's /JS reference to object 4 is recorded before object 4 opens,
// so obj_stream.is_js can be decided at open time per object 4's own
// "4 0 obj" header - a single forward pass never revisits already-closed
// objects.
func TestPDFJSExtractionViaStream(t *testing.T) {
	doc := []byte("5 0 obj\n" +
		"<< /JS 4 0 R >>\n" +
		"endobj\n" +
		"4 0 obj\n" +
		"<< /Length 5 >>\n" +
		"stream\n" +
		"alert\n" +
		"endstream\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "alert\n", out.String())
}

func TestPDFJSExtractionSplitAcrossChunks(t *testing.T) {
	doc := []byte("5 0 obj\n" +
		"<< /JS 4 0 R >>\n" +
		"endobj\n" +
		"4 0 obj\n" +
		"<< /Length 5 >>\n" +
		"stream\n" +
		"alert\n" +
		"endstream\n" +
		"endobj\n")

	out, err := feedSplit(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "alert\n", out.String())
}

func TestPDFJSExtractionLiteralString(t *testing.T) {
	doc := []byte("8 0 obj\n" +
		"<< /JS 7 0 R >>\n" +
		"endobj\n" +
		"7 0 obj\n" +
		"(alert)\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "alert", out.String())
}

func TestUTF16SurrogatePairDecodesToSingleCodepoint(t *testing.T) {
	doc := []byte("2 0 obj\n" +
		"<< /JS 1 0 R >>\n" +
		"endobj\n" +
		"1 0 obj\n" +
		"(\xfe\xff\xd8\x34\xdd\x1e)\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, []byte{0xF0, 0x9D, 0x84, 0x9E}, out.Bytes())
}

func TestUTF16NoBOMPassesThroughAsLatin(t *testing.T) {
	doc := []byte("2 0 obj\n" +
		"<< /JS 1 0 R >>\n" +
		"endobj\n" +
		"1 0 obj\n" +
		"(plain)\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "plain", out.String())
}

func TestDictionaryArrayValueDoesNotFlipKeyParity(t *testing.T) {
	// /Kids holds an array of two indirect references; neither "R" may
	// flip the dictionary back into key-expecting state until the array
	// closes, else /JS below would be misparsed as a dictionary key.
	doc := []byte("1 0 obj\n" +
		"<< /Kids [2 0 R 3 0 R] /JS 9 0 R >>\n" +
		"endobj\n" +
		"9 0 obj\n" +
		"(script)\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "script", out.String())
}

func TestNestedDictionaryAsValueFlipsParityOnClose(t *testing.T) {
	doc := []byte("1 0 obj\n" +
		"<< /Meta << /A 1 >> /JS 9 0 R >>\n" +
		"endobj\n" +
		"9 0 obj\n" +
		"(script)\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "script", out.String())
}

func TestLiteralStringEscapesAndOctal(t *testing.T) {
	doc := []byte("2 0 obj\n" +
		"<< /JS 1 0 R >>\n" +
		"endobj\n" +
		"1 0 obj\n" +
		"(a\\tb\\101\\)c)\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "a\tbA)c", out.String())
}

func TestLiteralStringBalancedParensNested(t *testing.T) {
	doc := []byte("2 0 obj\n" +
		"<< /JS 1 0 R >>\n" +
		"endobj\n" +
		"1 0 obj\n" +
		"(outer (inner) tail)\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "outer (inner) tail", out.String())
}

func TestHexStringOddNibbleZeroPadded(t *testing.T) {
	// <414> is "A" (0x41) followed by a lone '4' nibble, zero-padded to 0x40.
	doc := []byte("2 0 obj\n" +
		"<< /JS 1 0 R >>\n" +
		"endobj\n" +
		"1 0 obj\n" +
		"<414>\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, []byte{0x41, 0x40}, out.Bytes())
}

func TestHexStringSkipsWhitespaceBetweenNibbles(t *testing.T) {
	doc := []byte("2 0 obj\n" +
		"<< /JS 1 0 R >>\n" +
		"endobj\n" +
		"1 0 obj\n" +
		"<41 42>\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "AB", out.String())
}

func TestStreamMissingLengthIsError(t *testing.T) {
	doc := []byte("1 0 obj\n<< >>\nstream\nalert\nendstream\nendobj\n")
	_, err := feedWhole(t, doc)
	require.Error(t, err)
	var pe *Err
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StreamNoLength, pe.Reason)
}

func TestKeywordWhereKeyExpectedIsError(t *testing.T) {
	doc := []byte("1 0 obj\n<< true /A 1 >>\nendobj\n")
	_, err := feedWhole(t, doc)
	require.Error(t, err)
	var pe *Err
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, NotNameInDictionaryKey, pe.Reason)
}

func TestUnbalancedArrayInDictionaryIsError(t *testing.T) {
	doc := []byte("1 0 obj\n<< /Kids [1 0 R >>\nendobj\n")
	_, err := feedWhole(t, doc)
	require.Error(t, err)
	var pe *Err
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, IncompleteArrayInDictionary, pe.Reason)
}

func TestStackOverflowPanicsWithFatalErr(t *testing.T) {
	var buf bytes.Buffer
	l := NewLexer(&buf)

	var doc bytes.Buffer
	for i := 0; i < maxStackDepth+4; i++ {
		doc.WriteString("1 0 obj\n")
	}

	assert.PanicsWithValue(t, FatalErr{Message: "start-condition stack depth exceeds 32"}, func() {
		_ = l.Write(doc.Bytes())
	})
}

func TestCommentIsSkipped(t *testing.T) {
	doc := []byte("2 0 obj\n" +
		"<< /JS 1 0 R >>\n" +
		"endobj\n" +
		"1 0 obj\n" +
		"% this is a comment with a second % inside it\n" +
		"(hi)\n" +
		"endobj\n")

	out, err := feedWhole(t, doc)
	require.ErrorIs(t, err, Eos)
	assert.Equal(t, "hi", out.String())
}

func TestInternedNamesAreReused(t *testing.T) {
	var buf bytes.Buffer
	l := NewLexer(&buf)
	doc := []byte("1 0 obj\n<< /Type /Catalog /Type /Catalog >>\nendobj\n")
	require.NoError(t, l.Write(doc))
	require.ErrorIs(t, l.Finish(), Eos)
	assert.Equal(t, 2, l.names.Len())
}
