// internal/locator/path.go
package locator

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pagedriver/internal/session"
)

// PathScript computes an element's canonical XPath inside the document.
// An id short-circuits the walk, the body element is the anchor, and every
// other step is indexed among preceding siblings with the same tag.
const PathScript = `function(el) {
	const path = function(node) {
		const tag = node.tagName.toLowerCase();
		if (node.id !== '') {
			return '//' + tag + '[@id="' + node.id + '"]';
		}
		if (node === node.ownerDocument.body) {
			return tag;
		}
		const parent = node.parentElement;
		if (!parent) {
			return '/' + tag;
		}
		let index = 1;
		for (let sib = node.previousElementSibling; sib; sib = sib.previousElementSibling) {
			if (sib.tagName === node.tagName) {
				index++;
			}
		}
		return path(parent) + '/' + tag + '[' + index + ']';
	};
	return path(el);
}`

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// CanonicalPath returns the structural path of h. Sessions holding the
// document in-process answer directly; the others run PathScript in the page.
func CanonicalPath(ctx context.Context, sess session.Session, h session.ElementHandle) (string, error) {
	if pe, ok := sess.(session.PathEvaluator); ok {
		return pe.CanonicalPath(ctx, h)
	}
	raw, err := sess.EvaluateInDocument(ctx, PathScript, h)
	if err != nil {
		return "", fmt.Errorf("compute canonical path: %w", err)
	}
	var path string
	if err := jsonAPI.Unmarshal(raw, &path); err != nil {
		return "", fmt.Errorf("decode canonical path %s: %w", raw, err)
	}
	return path, nil
}

// AsXPath turns a canonical path into an XPath expression that re-locates the
// element. Paths anchored at body are relative and get a descendant prefix.
func AsXPath(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path
	}
	return "//" + path
}
