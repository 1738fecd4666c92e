// Package catalog resolves card names to identifiers from a cards CSV.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ramonehamilton/mtga-synergy/internal/logging"
)

// ErrMissingColumns is returned when the header lacks an id or name column.
var ErrMissingColumns = errors.New("cards file needs id and name columns")

// Id column names, in lookup order.
var idColumns = []string{"id", "mtga_id"}

// Card is one catalog entry.
type Card struct {
	ID   uint64
	Name string
}

// Catalog is an in-memory name/id index.
type Catalog struct {
	byName map[string]uint64
	byID   map[uint64]string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		byName: make(map[string]uint64),
		byID:   make(map[uint64]string),
	}
}

// Load reads a cards CSV file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cards file: %w", err)
	}
	defer func() { _ = f.Close() }()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return c, nil
}

// Read parses a cards CSV with an id (or mtga_id) column and a name column.
// Rows with a zero or unparsable id or an empty name are skipped.
func Read(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idCol, nameCol := -1, -1
	for _, want := range idColumns {
		if idCol = indexOf(header, want); idCol >= 0 {
			break
		}
	}
	nameCol = indexOf(header, "name")
	if idCol < 0 || nameCol < 0 {
		return nil, ErrMissingColumns
	}

	c := New()
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, fmt.Errorf("read cards: %w", err)
		}
		if idCol >= len(record) || nameCol >= len(record) {
			skipped++
			continue
		}

		id, err := strconv.ParseUint(strings.TrimSpace(record[idCol]), 10, 64)
		name := strings.TrimSpace(record[nameCol])
		if err != nil || id == 0 || name == "" {
			skipped++
			continue
		}
		c.Add(Card{ID: id, Name: name})
	}

	log := logging.With("catalog")
	log.Debug().
		Int("cards", c.Len()).
		Int("skipped", skipped).
		Msg("loaded card catalog")
	return c, nil
}

// Add inserts a card. A later card with the same name replaces the earlier
// name mapping; both ids keep resolving to their names.
func (c *Catalog) Add(card Card) {
	c.byName[strings.ToLower(card.Name)] = card.ID
	c.byID[card.ID] = card.Name
}

// ResolveID returns the id for a card name, ignoring case.
func (c *Catalog) ResolveID(name string) (uint64, bool) {
	id, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// ResolveName returns the name recorded for an id.
func (c *Catalog) ResolveName(id uint64) (string, bool) {
	name, ok := c.byID[id]
	return name, ok
}

// Len returns the number of distinct ids.
func (c *Catalog) Len() int {
	return len(c.byID)
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}
