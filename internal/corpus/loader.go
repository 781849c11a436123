package corpus

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Errors returned by corpus loaders.
var (
	ErrMissingColumn = errors.New("corpus file missing required column")
	ErrNoDocuments   = errors.New("corpus contains no documents")
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines
// (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// LoadCSV reads a corpus from a CSV file. The header must contain a
// "text" and a "target" column; every other column is kept as passthrough
// metadata. An "id" column is used when present, otherwise IDs are the
// 1-based row numbers.
func LoadCSV(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	textIdx, ok := col["text"]
	if !ok {
		return nil, fmt.Errorf("%w: text", ErrMissingColumn)
	}
	targetIdx, ok := col["target"]
	if !ok {
		return nil, fmt.Errorf("%w: target", ErrMissingColumn)
	}
	idIdx, hasID := col["id"]

	var docs []Document
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", row+2, err)
		}
		row++

		if textIdx >= len(record) || targetIdx >= len(record) {
			return nil, fmt.Errorf("row %d: too few fields", row+1)
		}
		target, err := strconv.ParseFloat(strings.TrimSpace(record[targetIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing target: %w", row+1, err)
		}

		doc := Document{
			Text:   record[textIdx],
			Target: target,
		}
		if hasID && idIdx < len(record) {
			doc.ID = record[idIdx]
		} else {
			doc.ID = strconv.Itoa(row)
		}

		for i, name := range header {
			key := strings.TrimSpace(strings.ToLower(name))
			if key == "text" || key == "target" || key == "id" || i >= len(record) {
				continue
			}
			if doc.Meta == nil {
				doc.Meta = make(map[string]string)
			}
			doc.Meta[name] = record[i]
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return &Corpus{Docs: docs}, nil
}

// LoadJSONL reads a corpus from a JSONL file, one Document per line.
// Empty lines are skipped.
func LoadJSONL(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	var docs []Document
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var doc Document
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		if doc.ID == "" {
			doc.ID = strconv.Itoa(lineNum)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return &Corpus{Docs: docs}, nil
}

// LoadPDFDir reads a corpus from a directory of PDF files. Targets come
// from a targets.csv sidecar in the same directory with columns
// "file" and "target". PDFs without a target row are skipped.
func LoadPDFDir(dir string) (*Corpus, error) {
	targets, err := loadTargetSidecar(filepath.Join(dir, "targets.csv"))
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names) // Stable document order regardless of directory iteration

	var docs []Document
	for _, name := range names {
		target, ok := targets[name]
		if !ok {
			continue
		}
		text, err := extractPDFText(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", name, err)
		}
		docs = append(docs, Document{
			ID:     strings.TrimSuffix(name, filepath.Ext(name)),
			Text:   text,
			Target: target,
		})
	}

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return &Corpus{Docs: docs}, nil
}

// loadTargetSidecar reads the file→target mapping for a PDF corpus.
func loadTargetSidecar(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening targets sidecar: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading sidecar header: %w", err)
	}
	fileIdx, targetIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "file":
			fileIdx = i
		case "target":
			targetIdx = i
		}
	}
	if fileIdx < 0 || targetIdx < 0 {
		return nil, fmt.Errorf("%w: file, target", ErrMissingColumn)
	}

	targets := make(map[string]float64)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading sidecar: %w", err)
		}
		target, err := strconv.ParseFloat(strings.TrimSpace(record[targetIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing sidecar target for %s: %w", record[fileIdx], err)
		}
		targets[record[fileIdx]] = target
	}
	return targets, nil
}

// extractPDFText concatenates the plain text of every page.
func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // Unreadable page, keep what we can
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
