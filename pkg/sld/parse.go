package sld

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"

	errs "github.com/matzehuels/sldview/pkg/errors"
)

// MaxDocumentSize is the largest document accepted, in bytes.
const MaxDocumentSize = 10 << 20

const rootElement = "StyledLayerDescriptor"

// Version is the SLD specification version a document follows.
type Version string

// Recognized versions.
const (
	Version10      Version = "1.0.0"
	Version11      Version = "1.1.0"
	VersionUnknown Version = "unknown"
)

// Document is a parsed SLD document. It is built once per compile and not
// shared.
type Document struct {
	Root     *Node
	Version  Version
	Encoding string // charset the bytes were decoded from
	Repaired bool   // parsed only after the repair pass
}

var (
	utf8BOM         = []byte{0xEF, 0xBB, 0xBF}
	declaredCharset = regexp.MustCompile(`^\s*<\?xml[^>]*encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
	controlChars    = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	xmlnsValue      = regexp.MustCompile(`xmlns:(\w+)\s*=\s*"\s*([^"]*?)\s*"`)
)

// Parse runs the decode, parse and validate steps in order.
func Parse(data []byte) (*Document, error) {
	text, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	doc, err := ParseText(text)
	if err != nil {
		return nil, err
	}
	doc.Encoding = enc
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode checks the size limits and converts data to UTF-8 text.
//
// Valid UTF-8 is used as-is. Otherwise the charset declared in the XML
// prolog is tried, then windows-1252, then ISO-8859-1. A leading byte order
// mark is removed. The second result names the charset that was used.
func Decode(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", errs.New(errs.ErrCodeEmptyDocument, "document is empty")
	}
	if len(data) > MaxDocumentSize {
		return "", "", errs.New(errs.ErrCodeTooLarge, "document is %d bytes (max %d)", len(data), MaxDocumentSize)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	if label := declaredLabel(data); label != "" {
		if enc, name := charset.Lookup(label); enc != nil && name != "utf-8" {
			if out, err := enc.NewDecoder().Bytes(data); err == nil {
				return trimBOM(out), name, nil
			}
		}
	}
	if out, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
		return trimBOM(out), "windows-1252", nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", errs.Wrap(errs.ErrCodeDecode, err, "document is not valid text")
	}
	return trimBOM(out), "iso-8859-1", nil
}

// ParseText builds the element tree from decoded text. When the first
// attempt fails, control characters are stripped and namespace declarations
// trimmed, and the text is parsed once more with unclosed tags auto-closed.
func ParseText(text string) (*Document, error) {
	if !strings.Contains(text, rootElement) {
		return nil, errs.New(errs.ErrCodeNotSLD, "document does not contain %s", rootElement)
	}

	root, err := buildTree(text, false)
	repaired := false
	if err != nil {
		var retryErr error
		root, retryErr = buildTree(repair(text), true)
		if retryErr != nil {
			return nil, errs.Wrap(errs.ErrCodeParse, err, "malformed XML")
		}
		repaired = true
	}

	return &Document{
		Root:     root,
		Version:  DetectVersion(root),
		Repaired: repaired,
	}, nil
}

// Validate checks that the document has an SLD root with at least one
// NamedLayer or UserLayer.
func Validate(doc *Document) error {
	if doc == nil || doc.Root == nil {
		return errs.New(errs.ErrCodeStructure, "document has no root element")
	}
	if doc.Root.Local() != rootElement {
		return errs.New(errs.ErrCodeStructure, "root element is %q, want %s", doc.Root.Local(), rootElement)
	}
	if doc.Root.Find("NamedLayer") == nil && doc.Root.Find("UserLayer") == nil {
		return errs.New(errs.ErrCodeStructure, "document has no NamedLayer or UserLayer")
	}
	return nil
}

// DetectVersion determines the SLD version from the root's version
// attribute, then its schemaLocation, then the namespaces in use.
func DetectVersion(root *Node) Version {
	if root == nil {
		return VersionUnknown
	}
	switch Version(strings.TrimSpace(root.Attr("version"))) {
	case Version10:
		return Version10
	case Version11:
		return Version11
	}

	loc := root.Attr("schemaLocation")
	switch {
	case strings.Contains(loc, string(Version10)):
		return Version10
	case strings.Contains(loc, string(Version11)):
		return Version11
	}

	var se, sld bool
	root.Walk(func(n *Node) bool {
		switch n.Name.Space {
		case NamespaceSE:
			se = true
		case NamespaceSLD:
			sld = true
		}
		return !se
	})
	switch {
	case se:
		return Version11
	case sld:
		return Version10
	}
	return VersionUnknown
}

func repair(text string) string {
	text = controlChars.ReplaceAllString(text, "")
	return xmlnsValue.ReplaceAllString(text, `xmlns:$1="$2"`)
}

func declaredLabel(data []byte) string {
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	if m := declaredCharset.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return ""
}

func trimBOM(b []byte) string {
	return strings.TrimPrefix(string(b), "\uFEFF")
}
