// Package extract provides local document text extraction, used as the
// fallback when no document-understanding model is configured.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"plagiax/pkg/ai"
)

// LocalExtractor parses documents in-process: PDF, DOCX, HTML, plain text.
// It never excludes headers/footers; that refinement belongs to the
// model-backed extractor.
type LocalExtractor struct{}

// NewLocalExtractor builds a parser-based Extractor.
func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{}
}

// Extract implements ai.Extractor. An empty result means the document body
// held no readable text and is not an error.
func (e *LocalExtractor) Extract(_ context.Context, doc ai.DataURI) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(doc.MimeType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "application/pdf":
		return parsePDF(doc.Data)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return parseDOCX(doc.Data)
	case "text/html", "application/xhtml+xml":
		return parseHTML(doc.Data)
	default:
		return normalizeText(string(doc.Data)), nil
	}
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var parts []string
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing entirely
			continue
		}
		text = normalizeText(text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func parseDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var document []byte
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("read docx document: %w", err)
		}
		document, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read docx content: %w", err)
		}
		break
	}
	if document == nil {
		return "", fmt.Errorf("docx has no word/document.xml")
	}
	return docxText(document)
}

// docxText walks the WordprocessingML token stream, collecting run text
// and separating paragraphs with spaces.
func docxText(document []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(document))
	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx xml: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteString(" ")
			}
		case xml.CharData:
			if inText {
				buf.Write(el)
			}
		}
	}
	return normalizeText(buf.String()), nil
}

func parseHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return normalizeText(htmlText(doc)), nil
}

func htmlText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			buf.WriteString(" ")
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && (node.Data == "p" || node.Data == "br" || node.Data == "div" || node.Data == "li") {
			buf.WriteString(" ")
		}
	}
	walk(n)
	return buf.String()
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
