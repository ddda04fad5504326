// internal/locator/path_test.go
package locator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagedriver/internal/mocks"
	"github.com/xkilldash9x/pagedriver/internal/session"
)

const pathPage = `<body>
  <div id="foo">identified</div>
  <ol>
    <li>1</li><li>2</li><li>3</li><li>4</li>
  </ol>
  <div><span>a</span><p>b</p><span>c</span></div>
</body>`

func TestCanonicalPath_InProcess(t *testing.T) {
	ctx := context.Background()
	sess := session.NewStaticSession(nil, zaptest.NewLogger(t))
	require.NoError(t, sess.LoadHTML("https://path.test/", pathPage))

	cases := map[string]string{
		"#foo":                      `//div[@id="foo"]`,
		"body":                      "body",
		"ol > li:nth-child(3)":      "body/ol[1]/li[3]",
		"body > div:nth-of-type(2)": "body/div[2]",
		"div > span:nth-of-type(2)": "body/div[2]/span[2]",
		"div > p":                   "body/div[2]/p[1]",
	}
	for selector, want := range cases {
		t.Run(selector, func(t *testing.T) {
			h, err := sess.FindOne(ctx, session.SelectorCSS, selector)
			require.NoError(t, err)
			got, err := CanonicalPath(ctx, sess, h)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// The path re-locates exactly the same element.
			again, err := sess.FindOne(ctx, session.SelectorXPath, AsXPath(got))
			require.NoError(t, err)
			assert.Equal(t, h.HandleID(), again.HandleID())
		})
	}
}

func TestCanonicalPath_InDocument(t *testing.T) {
	ctx := context.Background()
	sess := new(mocks.MockSession)
	h := mocks.Handle("n1")

	sess.On("EvaluateInDocument", mock.Anything, PathScript, h).
		Return(json.RawMessage(`"body/ol[1]/li[3]"`), nil).Once()

	got, err := CanonicalPath(ctx, sess, h)
	require.NoError(t, err)
	assert.Equal(t, "body/ol[1]/li[3]", got)
	sess.AssertExpectations(t)
}

func TestCanonicalPath_InDocumentErrors(t *testing.T) {
	ctx := context.Background()
	h := mocks.Handle("n1")

	t.Run("evaluation failure", func(t *testing.T) {
		sess := new(mocks.MockSession)
		boom := errors.New("execution context was destroyed")
		sess.On("EvaluateInDocument", mock.Anything, PathScript, h).Return(nil, boom)

		_, err := CanonicalPath(ctx, sess, h)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("non-string result", func(t *testing.T) {
		sess := new(mocks.MockSession)
		sess.On("EvaluateInDocument", mock.Anything, PathScript, h).Return(json.RawMessage(`{"x":1}`), nil)

		_, err := CanonicalPath(ctx, sess, h)
		assert.Error(t, err)
	})
}

func TestPathScriptShape(t *testing.T) {
	// The script is evaluated with the element bound as its first argument.
	assert.Contains(t, PathScript, "function(el)")
	assert.Contains(t, PathScript, `'[@id="'`)
	assert.Contains(t, PathScript, "toLowerCase()")
	assert.Contains(t, PathScript, "previousElementSibling")
}

func TestAsXPath(t *testing.T) {
	assert.Equal(t, `//div[@id="foo"]`, AsXPath(`//div[@id="foo"]`))
	assert.Equal(t, "//body/ol[1]/li[3]", AsXPath("body/ol[1]/li[3]"))
	assert.Equal(t, "/html/head[1]", AsXPath("/html/head[1]"))
}
