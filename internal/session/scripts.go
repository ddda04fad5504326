// internal/session/scripts.go
package session

// In-page helpers used by the browser backends. Every script is a function
// expression whose first argument is the target element.

const isClickableJS = `function(el) {
	const visible = (` + isVisibleJS + `)(el);
	if (!visible || el.disabled || el.getAttribute('aria-disabled') === 'true') return false;
	const rect = el.getBoundingClientRect();
	const cx = rect.left + rect.width / 2;
	const cy = rect.top + rect.height / 2;
	return cx >= 0 && cy >= 0 && cx <= window.innerWidth && cy <= window.innerHeight;
}`

const attributeJS = `function(el, name) {
	return el.hasAttribute(name) ? el.getAttribute(name) : null;
}`

// clearJS empties form controls and contenteditable hosts and notifies listeners.
const clearJS = `function(el) {
	if ('value' in el) {
		el.value = '';
	} else if (el.isContentEditable) {
		el.textContent = '';
	}
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

const listOptionsJS = `function(el) {
	if (!el.options) return [];
	return Array.from(el.options).map(o => o.text);
}`

// selectIndexJS returns false when the index is out of range.
const selectIndexJS = `function(el, index) {
	if (!el.options || index < 0 || index >= el.options.length) return false;
	el.selectedIndex = index;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// selectTextJS returns false when no option label matches.
const selectTextJS = `function(el, text) {
	if (!el.options) return false;
	const want = text.trim();
	const idx = Array.from(el.options).findIndex(o => o.text.trim() === want);
	if (idx < 0) return false;
	el.selectedIndex = idx;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// xpathSnapshotJS runs with this bound to a document (or, for frames whose
// content document is not loaded, the frame element) and returns the matches
// as an array of nodes.
const xpathSnapshotJS = `function(xpath) {
	const doc = this.nodeType === Node.DOCUMENT_NODE ? this : this.ownerDocument;
	const found = doc.evaluate(xpath, this, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < found.snapshotLength; i++) {
		out.push(found.snapshotItem(i));
	}
	return out;
}`

// hoverJS synthesizes the pointer events a real move would produce. Used by
// backends that have no native pointer-move primitive.
const hoverJS = `function(el) {
	el.scrollIntoView({ block: 'center', inline: 'center' });
	const rect = el.getBoundingClientRect();
	const init = { bubbles: true, cancelable: true, view: window,
		clientX: rect.left + rect.width / 2, clientY: rect.top + rect.height / 2 };
	for (const type of ['pointerover', 'pointerenter', 'mouseover', 'mouseenter', 'pointermove', 'mousemove']) {
		const ev = type.startsWith('pointer') ? new PointerEvent(type, init) : new MouseEvent(type, init);
		el.dispatchEvent(ev);
	}
	return true;
}`

// bindThis adapts a function expression taking the element as its first
// argument to CDP's Runtime.callFunctionOn, which binds the element to this.
func bindThis(fn string) string {
	return "function(...args) { return (" + fn + ")(this, ...args); }"
}
