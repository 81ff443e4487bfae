// Package whitelist implements C9, the Whitelist Sync: fetching the
// controller's active configuration over FTP, decompressing it, and
// extracting the set of input titles the rest of the bridge treats as the
// topic whitelist. Grounded on the original's load_miniserver_config and
// extract_inputs in miniserver_sync.py, with the LZ4/legacy format
// detection spec §4.9 adds on top of the original's legacy-only decoder.
package whitelist

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// extractTitles walks doc, collecting the Title attribute of every
// descendant <C> element under a <C Type="VirtualInCaption"> node (spec
// §4.9 step 9). Firmware occasionally emits XML the standard decoder
// rejects (duplicate attributes, stray bytes); on a hard parse error this
// falls back to a tolerant regex scan rather than losing the whole sync.
func extractTitles(doc []byte) ([]string, error) {
	titles, err := extractTitlesStrict(doc)
	if err == nil {
		return titles, nil
	}
	recovered := extractTitlesRecovering(doc)
	if len(recovered) > 0 {
		return recovered, nil
	}
	return nil, fmt.Errorf("whitelist: xml parse failed and recovery found nothing: %w", err)
}

// element is a minimal parse tree node: tag name, attributes, children.
type element struct {
	Tag      string
	Attrs    map[string]string
	Children []*element
}

func extractTitlesStrict(doc []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	root, err := parseElement(dec, nil)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("whitelist: empty document")
	}

	var titles []string
	collectFromVirtualInCaption(root, &titles)
	return titles, nil
}

// parseElement reads tokens until the next start element closes, or until
// EOF when start is nil (top-level document scan), building a tree.
func parseElement(dec *xml.Decoder, start *xml.StartElement) (*element, error) {
	var el *element
	if start != nil {
		attrs := make(map[string]string, len(start.Attr))
		for _, a := range start.Attr {
			// Duplicate attributes: first occurrence wins, matching the order
			// firmware historically emits the canonical one first.
			if _, ok := attrs[a.Name.Local]; !ok {
				attrs[a.Name.Local] = a.Value
			}
		}
		el = &element{Tag: start.Name.Local, Attrs: attrs}
	} else {
		el = &element{Tag: "", Attrs: map[string]string{}}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if start == nil {
					return el, nil
				}
				return el, fmt.Errorf("whitelist: unexpected EOF inside <%s>", el.Tag)
			}
			return el, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			se := t.Copy()
			child, err := parseElement(dec, &se)
			if err != nil {
				return el, err
			}
			el.Children = append(el.Children, child)
		case xml.EndElement:
			if start != nil {
				return el, nil
			}
		}
	}
}

func collectFromVirtualInCaption(el *element, titles *[]string) {
	if el.Tag == "C" && el.Attrs["Type"] == "VirtualInCaption" {
		for _, child := range el.Children {
			collectTitles(child, titles)
		}
	}
	for _, child := range el.Children {
		collectFromVirtualInCaption(child, titles)
	}
}

func collectTitles(el *element, titles *[]string) {
	if el.Tag == "C" {
		if title, ok := el.Attrs["Title"]; ok && title != "" {
			*titles = append(*titles, title)
		}
	}
	for _, child := range el.Children {
		collectTitles(child, titles)
	}
}

// virtualInCaptionBlock matches a <C Type="VirtualInCaption"> opening tag
// through its matching closing </C>, tolerating unbalanced siblings
// elsewhere in a document too damaged for a real parser.
var virtualInCaptionBlock = regexp.MustCompile(`(?s)<C\b[^>]*\bType="VirtualInCaption"[^>]*>(.*?)</C>`)

// titleAttr matches a Title="..." attribute on any <C ...> element.
var titleAttr = regexp.MustCompile(`<C\b[^>]*\bTitle="([^"]*)"`)

// extractTitlesRecovering is the last-resort fallback: scan raw bytes with
// regular expressions instead of building a tree, tolerant of the kind of
// malformed XML a real parser rejects outright.
func extractTitlesRecovering(doc []byte) []string {
	var titles []string
	for _, block := range virtualInCaptionBlock.FindAllSubmatch(doc, -1) {
		for _, m := range titleAttr.FindAllSubmatch(block[1], -1) {
			title := string(m[1])
			if title != "" {
				titles = append(titles, title)
			}
		}
	}
	return titles
}
