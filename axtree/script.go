package axtree

// Script is a function expression evaluated in the page with the id
// attribute name as its only argument. It stamps every element outside
// script, style and noscript with an incrementing id and returns the tree
// rooted at document.body in the Node JSON shape.
const Script = `(idAttr) => {
  let counter = 0;
  const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT']);
  const roles = {
    a: 'link', button: 'button', img: 'img', input: 'textbox',
    ul: 'list', ol: 'list', li: 'listitem',
    h1: 'heading', h2: 'heading', h3: 'heading', h4: 'heading', h5: 'heading', h6: 'heading',
  };

  function visible(el) {
    try {
      const s = window.getComputedStyle(el);
      return s.display !== 'none' && s.visibility !== 'hidden' && s.opacity !== '0';
    } catch (e) {
      return true;
    }
  }

  function textLeaf(node, parent) {
    const text = node.textContent.trim();
    if (!text) return null;
    let width = 0, height = 0;
    try {
      const range = document.createRange();
      range.selectNodeContents(node);
      const r = range.getBoundingClientRect();
      width = r.width;
      height = r.height;
    } catch (e) {}
    return {
      id: parent.id, name: '#text', text: text,
      boundingBox: { width: width, height: height },
      isVisible: parent.isVisible, children: [],
    };
  }

  function element(el) {
    if (skip.has(el.tagName)) return null;
    const id = String(counter++);
    try { el.setAttribute(idAttr, id); } catch (e) {}
    const tag = el.tagName.toLowerCase();
    const rect = el.getBoundingClientRect();
    const out = {
      id: id, name: tag, role: el.getAttribute('role') || roles[tag] || 'generic',
      text: (el.textContent || '').trim(),
      boundingBox: { width: rect.width, height: rect.height },
      isVisible: visible(el), children: [],
    };
    for (const child of el.childNodes) {
      let c = null;
      if (child.nodeType === Node.ELEMENT_NODE) c = element(child);
      else if (child.nodeType === Node.TEXT_NODE) c = textLeaf(child, out);
      if (c) out.children.push(c);
    }
    return out;
  }

  return element(document.body);
}`

// PathScript returns the CSS path of the element it is called on, in the
// same "html > body:nth-child(2) > ..." form the dom package renders.
const PathScript = `function () {
  const parts = [];
  for (let el = this; el && el.nodeType === Node.ELEMENT_NODE; el = el.parentElement) {
    const tag = el.tagName.toLowerCase();
    if (!el.parentElement) { parts.unshift(tag); break; }
    let i = 1;
    for (let s = el.previousElementSibling; s; s = s.previousElementSibling) i++;
    parts.unshift(tag + ':nth-child(' + i + ')');
  }
  return parts.join(' > ');
}`
