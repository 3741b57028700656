package vocab

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ExtractText pulls plain text out of a document so its terms can be mined.
// Supported types: .txt, .md, .docx, .pptx.
func ExtractText(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "txt", "md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("vocab: read %s: %w", path, err)
		}
		return string(data), nil
	case "docx":
		return extractDocxText(path)
	case "pptx":
		return extractPptxText(path)
	case "ppt":
		return "", errors.New("vocab: legacy .ppt files are not supported; save the file as .pptx and try again")
	case "pdf":
		return "", errors.New("vocab: .pdf files are not supported; export the document as .txt or .docx and try again")
	case "":
		return "", fmt.Errorf("vocab: could not determine file type of %s", filepath.Base(path))
	default:
		return "", fmt.Errorf("vocab: unsupported file type .%s", ext)
	}
}

// extractDocxText reads the main document part of a .docx archive and
// collects its text runs, one line per paragraph.
func extractDocxText(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("vocab: open %s as zip: %w", filepath.Base(path), err)
	}
	defer archive.Close()

	file, err := archive.Open("word/document.xml")
	if err != nil {
		return "", fmt.Errorf("vocab: %s has no document body: %w", filepath.Base(path), err)
	}
	defer file.Close()

	var b strings.Builder
	decoder := xml.NewDecoder(file)
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("vocab: parse %s: %w", filepath.Base(path), err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// extractPptxText reads every slide of a .pptx archive in slide order and
// collects the text nodes, delimiting slides so the model sees boundaries.
func extractPptxText(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("vocab: open %s as zip: %w", filepath.Base(path), err)
	}
	defer archive.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range archive.File {
		if num, ok := slideNumber(f.Name); ok {
			slides = append(slides, slide{num: num, file: f})
		}
	}
	// Zip order is not slide order: slide10 sorts before slide2 by name.
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var b strings.Builder
	for _, s := range slides {
		text, err := slideText(s.file)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&b, "--- Slide %d ---\n%s\n", s.num, strings.TrimSpace(text))
	}
	if b.Len() == 0 {
		return "", errors.New("vocab: no text found in presentation slides")
	}
	return b.String(), nil
}

// slideNumber parses ppt/slides/slideN.xml archive names.
func slideNumber(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "ppt/slides/slide")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, ".xml")
	if !ok {
		return 0, false
	}
	num, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return num, true
}

// slideText collects every text node in one slide part.
func slideText(file *zip.File) (string, error) {
	r, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("vocab: open slide %s: %w", file.Name, err)
	}
	defer r.Close()

	var b strings.Builder
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("vocab: parse slide %s: %w", file.Name, err)
		}
		if data, ok := token.(xml.CharData); ok {
			text := strings.TrimSpace(string(data))
			if text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
	}
	return b.String(), nil
}
