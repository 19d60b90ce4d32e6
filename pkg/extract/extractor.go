package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"docrag-be/internal/apperror"

	"github.com/ledongthuc/pdf"
)

// ExtractText turns an uploaded file into plain text. PDF and DOCX are parsed;
// every other allowed type is read as UTF-8 text.
func ExtractText(fileName string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch DetectFileType(fileName) {
	case "pdf":
		text, err = extractPDF(data)
	case "docx":
		text, err = extractDOCX(data)
	default:
		text = extractPlain(data)
	}
	if err != nil {
		return "", apperror.Wrap(apperror.KindValidation, apperror.CodeInvalidFileType,
			fmt.Sprintf("Could not read %s", fileName), err)
	}

	if strings.TrimSpace(text) == "" {
		return "", apperror.Validation(apperror.CodeEmptyContent, "No text could be extracted from the file")
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}

		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n\n")
		}
		textBuilder.WriteString(text)
	}

	return textBuilder.String(), nil
}

// extractDOCX walks word/document.xml collecting w:t runs; every w:p ends a paragraph.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("word/document.xml missing")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		out       strings.Builder
		paragraph strings.Builder
		inText    bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteString("\t")
			case "br":
				paragraph.WriteString("\n")
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if paragraph.Len() > 0 {
					if out.Len() > 0 {
						out.WriteString("\n\n")
					}
					out.WriteString(paragraph.String())
					paragraph.Reset()
				}
			}
		case xml.CharData:
			if inText {
				paragraph.Write(el)
			}
		}
	}

	return out.String(), nil
}

func extractPlain(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}
