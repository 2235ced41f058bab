package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"document-chat/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Page is one page (or sheet/slide) of extracted document text.
type Page struct {
	Number  int
	Content string
}

const defaultPageNumber = 1

// Parse extracts page-ordered plain text from an uploaded document. The
// format is picked from the filename extension. Content that cannot be
// parsed surfaces as models.ErrUnsupportedDocument.
func Parse(data []byte, filename string) ([]Page, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		pages []Page
		err   error
	)
	switch ext {
	case ".pdf":
		pages, err = parsePDF(data)
	case ".docx":
		pages, err = parseDOCX(data)
	case ".pptx":
		pages, err = parsePPTX(data)
	case ".xlsx":
		pages, err = parseXLSX(data)
	case ".ods":
		pages, err = parseODS(data)
	case ".txt":
		pages, err = parseText(data)
	default:
		return nil, fmt.Errorf("%w: unsupported file format: %s", models.ErrUnsupportedDocument, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrUnsupportedDocument, filename, err)
	}
	return pages, nil
}

func parsePDF(data []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var pages []Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		markdown, err := convertToMarkdown(pageText)
		if err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: i, Content: markdown})
	}
	return pages, nil
}

func parseDOCX(data []byte) ([]Page, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc := r.Editable()
	markdown, err := convertToMarkdown(doc.GetContent())
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, nil
	}
	return []Page{{Number: defaultPageNumber, Content: markdown}}, nil
}

func parsePPTX(data []byte) ([]Page, error) {
	f, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var pages []Page
	slideNum := 0
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slideNum++
		markdown, err := convertToMarkdown(extractTextFromXML(string(raw)))
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(markdown) != "" {
			pages = append(pages, Page{Number: slideNum, Content: markdown})
		}
	}
	return pages, nil
}

func parseXLSX(data []byte) ([]Page, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, err
	}

	var pages []Page
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		markdown, err := convertToMarkdown(text.String())
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(markdown) != "" {
			pages = append(pages, Page{Number: sheetNum + 1, Content: markdown})
		}
	}
	return pages, nil
}

func parseODS(data []byte) ([]Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []Page
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		markdown, err := convertToMarkdown(text.String())
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(markdown) != "" {
			pages = append(pages, Page{Number: sheetNum + 1, Content: markdown})
		}
	}
	return pages, nil
}

func parseText(data []byte) ([]Page, error) {
	markdown, err := convertToMarkdown(string(data))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, nil
	}
	return []Page{{Number: defaultPageNumber, Content: markdown}}, nil
}

func convertToMarkdown(text string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}

	return strings.Trim(buf.String(), " \t\n\r"), nil
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
