// Package loader reads and writes company lists and manages the project's
// .cv state directory.
package loader

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/companyview/pkg/logging"
	"github.com/vanderheijden86/companyview/pkg/model"
)

// Format is the on-disk shape of a company list.
type Format string

const (
	FormatArray   Format = "array"   // [ {...}, {...} ]
	FormatWrapped Format = "wrapped" // {"companies": [ ... ]}
	FormatJSONL   Format = "jsonl"   // one object per line
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 10 * 1024 * 1024

// Options tunes loading.
type Options struct {
	Logger logrus.FieldLogger
}

// Result is a decoded company list.
type Result struct {
	Companies []model.Company
	Format    Format
	// Skipped counts JSONL lines that could not be decoded.
	Skipped int
	// Warnings lists records that decoded but failed validation. They are
	// kept in Companies.
	Warnings []string
}

// LoadCompaniesFromFile reads the company list at path.
func LoadCompaniesFromFile(path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening company file: %w", err)
	}
	defer f.Close()

	res, err := LoadCompanies(f, opts)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// LoadCompanies decodes a company list in any supported format. The format
// is detected from the content: a leading '[' is an array, an object with a
// "companies" key is the wrapped form, anything else is JSONL. Malformed
// JSONL lines are skipped with a warning; malformed array or wrapped input
// is an error.
func LoadCompanies(r io.Reader, opts Options) (Result, error) {
	log := logging.OrDiscard(opts.Logger)

	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("reading company data: %w", err)
	}
	trimmed := bytes.TrimSpace(data)

	var res Result
	switch {
	case len(trimmed) == 0:
		res.Format = FormatArray
	case trimmed[0] == '[':
		res.Format = FormatArray
		if err := json.Unmarshal(trimmed, &res.Companies); err != nil {
			return res, fmt.Errorf("decoding company array: %w", err)
		}
	case isWrapped(trimmed):
		res.Format = FormatWrapped
		var w wrapper
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return res, fmt.Errorf("decoding company object: %w", err)
		}
		res.Companies = w.Companies
	default:
		res.Format = FormatJSONL
		if err := decodeJSONL(trimmed, &res, log); err != nil {
			return res, err
		}
	}

	for i := range res.Companies {
		normalize(&res.Companies[i])
		if err := res.Companies[i].Validate(); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			log.WithError(err).Warn("invalid company record")
		}
	}
	if res.Companies == nil {
		res.Companies = []model.Company{}
	}
	return res, nil
}

type wrapper struct {
	Companies []model.Company `json:"companies"`
}

// isWrapped reports whether data is a single object with a "companies" key.
func isWrapped(data []byte) bool {
	if data[0] != '{' {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	var probe map[string]json.RawMessage
	if err := dec.Decode(&probe); err != nil {
		return false
	}
	_, ok := probe["companies"]
	return ok && !dec.More()
}

func decodeJSONL(data []byte, res *Result, log logrus.FieldLogger) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var c model.Company
		if err := json.Unmarshal(line, &c); err != nil {
			res.Skipped++
			log.WithFields(logrus.Fields{"line": lineNum, "error": err}).Warn("skipping malformed company line")
			continue
		}
		res.Companies = append(res.Companies, c)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning company lines: %w", err)
	}
	return nil
}

// normalize maps display spellings of enum fields to their wire form.
func normalize(c *model.Company) {
	if !c.RelationshipType.IsValid() && c.RelationshipType != "" {
		if rt, err := model.ParseRelationshipType(string(c.RelationshipType)); err == nil {
			c.RelationshipType = rt
		}
	}
	if !c.Role.IsValid() && c.Role != "" {
		if role, err := model.ParseRole(string(c.Role)); err == nil {
			c.Role = role
		}
	}
	c.Name = strings.TrimSpace(c.Name)
}

// WriteCompanies encodes companies to w in the given format.
func WriteCompanies(w io.Writer, companies []model.Company, format Format) error {
	switch format {
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, c := range companies {
			if err := enc.Encode(c); err != nil {
				return fmt.Errorf("encoding company %d: %w", c.ID, err)
			}
		}
		return nil
	case FormatWrapped:
		return encodeIndented(w, wrapper{Companies: nonNil(companies)})
	case FormatArray, "":
		return encodeIndented(w, nonNil(companies))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteCompaniesToFile writes companies to path atomically, picking the
// format from the extension (.jsonl or .json).
func WriteCompaniesToFile(path string, companies []model.Company) error {
	format := FormatArray
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		format = FormatJSONL
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".companies-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCompanies(tmp, companies, format); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func encodeIndented(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding companies: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func nonNil(companies []model.Company) []model.Company {
	if companies == nil {
		return []model.Company{}
	}
	return companies
}

// ContentHash returns a stable hash of the fields that affect the
// hierarchy and its display. Two lists with the same hash render the same.
func ContentHash(companies []model.Company) string {
	h := sha256.New()
	for _, c := range companies {
		parent := "-"
		if c.ParentID != nil {
			parent = fmt.Sprint(*c.ParentID)
		}
		fmt.Fprintf(h, "%d\x00%s\x00%s\x00%s\x00%s\x00%d\x00%d\x00%t\n",
			c.ID, c.Name, c.RelationshipType, c.Role, parent, c.EventCount, c.FormCount, c.IsPrimary)
	}
	return hex.EncodeToString(h.Sum(nil))
}
