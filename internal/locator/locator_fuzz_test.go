// internal/locator/locator_fuzz_test.go
package locator

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
)

func FuzzParse(f *testing.F) {
	f.Add("css=#submit")
	f.Add("xpath=//a[@href]")
	f.Add("id=email")
	f.Add("(//li)[2]")
	f.Add("")
	f.Add("id=   ")

	f.Fuzz(func(t *testing.T, in string) {
		loc, err := Parse(in)
		if err != nil {
			return
		}
		if verr := loc.Validate(); verr != nil {
			t.Fatalf("Parse(%q) returned an invalid locator: %v", in, verr)
		}
		if !strings.HasPrefix(loc.String(), "By.") {
			t.Fatalf("unexpected rendering %q", loc.String())
		}

		// The explicit prefixed form parses back to the same locator.
		again, err := Parse(loc.Kind().String() + "=" + loc.Selector())
		if err != nil {
			t.Fatalf("reparse of %s failed: %v", loc, err)
		}
		if again != loc {
			t.Fatalf("reparse mismatch: %s != %s", again, loc)
		}
	})
}

// FuzzParse_Structured builds prefixed locators from fuzzed parts.
func FuzzParse_Structured(f *testing.F) {
	prefixes := []string{"css=", "xpath=", "id="}

	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		idx, err := c.GetInt()
		if err != nil {
			return
		}
		selector, err := c.GetString()
		if err != nil {
			return
		}
		i := idx % len(prefixes)
		if i < 0 {
			i += len(prefixes)
		}
		prefix := prefixes[i]

		loc, err := Parse(prefix + selector)
		if strings.TrimSpace(selector) == "" {
			if err == nil {
				t.Fatalf("empty selector accepted with prefix %q", prefix)
			}
			return
		}
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", prefix+selector, err)
		}
		if loc.Selector() != strings.TrimSpace(selector) {
			t.Fatalf("selector altered: %q -> %q", selector, loc.Selector())
		}
	})
}
