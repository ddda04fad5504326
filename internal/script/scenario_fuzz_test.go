// internal/script/scenario_fuzz_test.go
package script

import (
	"fmt"
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FuzzParse checks that Parse never panics and that an accepted scenario
// always carries steps with exactly one resolved action.
func FuzzParse(f *testing.F) {
	f.Add([]byte(fullScenario))
	f.Add([]byte("steps:\n  - click: id=a\n"))
	f.Add([]byte("steps:\n  - count: li\n    expect: \"0\"\n"))
	f.Add([]byte("steps: ["))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		sc, err := Parse(data)
		if err != nil {
			assert.ErrorIs(t, err, ErrInvalidScenario)
			return
		}
		require.NotEmpty(t, sc.Steps)
		for i, step := range sc.Steps {
			assert.NotEmpty(t, step.Action(), "step %d", i+1)
		}
	})
}

var stepTemplates = []string{
	"  - click: %s\n",
	"  - click_random: %s\n",
	"  - wait_for: %s\n",
	"  - count: %s\n",
	"  - xpath: %s\n",
	"  - frame: %s\n",
	"  - type: %s\n    text: %q\n",
	"  - select: %s\n    text: %q\n",
	"  - attribute: %s\n    attr: %q\n",
}

// FuzzParse_Structured builds well-formed documents from fuzzed locators and
// arguments, so the fuzzer spends its time on validation rather than YAML syntax.
func FuzzParse_Structured(f *testing.F) {
	f.Add([]byte("seed"))
	f.Add([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		n, err := c.GetInt()
		if err != nil {
			return
		}
		n = n%4 + 1
		if n < 1 {
			n += 4
		}

		var doc strings.Builder
		doc.WriteString("steps:\n")
		for range n {
			idx, err := c.GetInt()
			if err != nil {
				return
			}
			sel, err := c.GetString()
			if err != nil {
				return
			}
			arg, err := c.GetString()
			if err != nil {
				return
			}
			i := idx % len(stepTemplates)
			if i < 0 {
				i += len(stepTemplates)
			}
			tmpl := stepTemplates[i]
			if strings.Count(tmpl, "%") == 2 {
				fmt.Fprintf(&doc, tmpl, fmt.Sprintf("%q", sel), arg)
			} else {
				fmt.Fprintf(&doc, tmpl, fmt.Sprintf("%q", sel))
			}
		}

		sc, err := Parse([]byte(doc.String()))
		if err != nil {
			assert.ErrorIs(t, err, ErrInvalidScenario)
			return
		}
		require.Len(t, sc.Steps, n)
		for _, step := range sc.Steps {
			assert.NoError(t, step.Target().Validate())
		}
	})
}
