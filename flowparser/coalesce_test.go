package flowparser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frankframework/frankflow/flowparser"
	"github.com/frankframework/frankflow/lib/log"
)

func TestCoalesce(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		raw  []string
		exp  []flowparser.XMLParseError
	}{
		{
			name: "horizontal",
			raw:  []string{"1:1: bad token", "1:2: bad token", "1:3: bad token"},
			exp: []flowparser.XMLParseError{
				{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 3, Message: "bad token"},
			},
		},
		{
			name: "vertical",
			raw:  []string{"1:5: bad token", "2:1: bad token", "2:2: bad token", "3:1: bad token"},
			exp: []flowparser.XMLParseError{
				{StartLine: 1, StartColumn: 5, EndLine: 2, EndColumn: 5, Message: "bad token"},
				{StartLine: 2, StartColumn: 2, EndLine: 3, EndColumn: 2, Message: "bad token"},
			},
		},
		{
			name: "different_messages",
			raw:  []string{"1:1: bad token", "1:2: unclosed tag: Pipe."},
			exp: []flowparser.XMLParseError{
				{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 1, Message: "bad token"},
				{StartLine: 1, StartColumn: 2, EndLine: 1, EndColumn: 2, Message: "unclosed tag: Pipe."},
			},
		},
		{
			name: "gap",
			raw:  []string{"1:1: bad token", "1:3: bad token", "3:1: bad token"},
			exp: []flowparser.XMLParseError{
				{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 1, Message: "bad token"},
				{StartLine: 1, StartColumn: 3, EndLine: 1, EndColumn: 3, Message: "bad token"},
				{StartLine: 3, StartColumn: 1, EndLine: 3, EndColumn: 1, Message: "bad token"},
			},
		},
		{
			name: "malformed",
			raw:  []string{"garbage", "1:1: bad token", "1:x: bad token", "1:2: bad token"},
			exp: []flowparser.XMLParseError{
				{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 2, Message: "bad token"},
			},
		},
		{
			name: "empty",
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := log.WithTB(context.Background(), t, nil)
			assert.Equal(t, tc.exp, flowparser.Coalesce(ctx, tc.raw))
		})
	}
}

func TestParseRawError(t *testing.T) {
	t.Parallel()

	e, err := flowparser.ParseRawError("12:7: unclosed tag: Pipe.")
	assert.Nil(t, err)
	assert.Equal(t, flowparser.RawError{Line: 12, Column: 7, Message: "unclosed tag: Pipe."}, e)

	_, err = flowparser.ParseRawError("12: missing column")
	assert.NotNil(t, err)
}

func TestErrorsFromParse(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	_, err := flowparser.ParseString("", "<Configuration/>abc\nde")
	assert.Equal(t, []flowparser.XMLParseError{
		{StartLine: 1, StartColumn: 17, EndLine: 2, EndColumn: 19, Message: "text data outside of root node."},
		{StartLine: 2, StartColumn: 2, EndLine: 2, EndColumn: 2, Message: "text data outside of root node."},
	}, flowparser.Errors(ctx, err))

	assert.Nil(t, flowparser.Errors(ctx, nil))
}
