package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"ragserver/types"
)

var pdfMagic = []byte("%PDF-")

// textShowOp matches literal strings fed to the Tj/TJ text-showing
// operators in a PDF content stream.
var textShowOp = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)

// ExtractText turns an uploaded payload into plain text. PDF payloads go
// through pdfcpu; anything else must be valid UTF-8.
func ExtractText(data []byte, fileName string) (string, error) {
	if len(data) == 0 {
		return "", &types.ExtractionError{FileName: fileName, Err: errors.New("empty file")}
	}

	if bytes.HasPrefix(data, pdfMagic) || strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		text, err := extractPDF(data)
		if err != nil {
			return "", &types.ExtractionError{FileName: fileName, Err: err}
		}
		return text, nil
	}

	if !utf8.Valid(data) {
		return "", &types.ExtractionError{FileName: fileName, Err: errors.New("file is not valid UTF-8 text")}
	}
	return string(data), nil
}

func extractPDF(data []byte) (string, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), api.LoadConfiguration())
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return "", fmt.Errorf("invalid PDF: %w", err)
	}

	var sb strings.Builder
	for page := 1; page <= ctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(ctx, page)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d: %w", page, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d content: %w", page, err)
		}
		sb.WriteString(textFromContentStream(content))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// textFromContentStream pulls the literal string arguments of text-showing
// operators out of a decoded content stream.
func textFromContentStream(content []byte) string {
	matches := textShowOp.FindAllSubmatch(content, -1)
	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(unescapePDFString(string(m[1])))
		sb.WriteString(" ")
	}
	return sb.String()
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(
		`\(`, "(",
		`\)`, ")",
		`\\`, `\`,
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
	)
	return replacer.Replace(s)
}
