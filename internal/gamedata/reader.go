// Package gamedata reads 17Lands game data exports: one CSV row per game with
// the outcome and the cards seen in the opening hand or drawn.
package gamedata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/ramonehamilton/mtga-synergy/internal/logging"
)

var (
	// ErrNoOutcomeColumn is returned when the header has neither "won" nor "user_win".
	ErrNoOutcomeColumn = errors.New("game data has no outcome column")

	// ErrMissingOutcome is yielded for a row whose outcome field is absent or empty.
	ErrMissingOutcome = errors.New("missing outcome")
)

// Outcome column names, in lookup order.
var outcomeColumns = []string{"won", "user_win"}

// List columns hold bracketed id lists like "[101,202,303]".
var (
	openingHandColumns = []string{"opening_hand", "opening_hand_card_ids"}
	drawnColumns       = []string{"drawn", "drawn_card_ids"}
)

// Wide exports have one column per card, prefixed with the zone.
const (
	openingHandPrefix = "opening_hand_"
	drawnPrefix       = "drawn_"
)

// Mode describes how card presence is encoded in the file.
type Mode int

const (
	// ModeList reads card ids from opening_hand / drawn list columns.
	ModeList Mode = iota
	// ModeWide reads per-card opening_hand_<name> / drawn_<name> flag columns.
	ModeWide
)

func (m Mode) String() string {
	switch m {
	case ModeWide:
		return "wide"
	default:
		return "list"
	}
}

// Resolver maps card names from wide column headers to identifiers.
type Resolver interface {
	ResolveID(name string) (uint64, bool)
}

// Game is one parsed row.
type Game struct {
	// Line is the 1-based CSV record number, header included.
	Line  int
	Cards []uint64
	Won   bool
}

type wideColumn struct {
	cardID  uint64
	opening int
	drawn   int
}

// Reader iterates the games of one export.
type Reader struct {
	csv     *csv.Reader
	closer  io.Closer
	columns map[string]int

	wonCol     int
	openingCol int
	drawnCol   int
	wide       []wideColumn
	mode       Mode
	line       int
}

// Open opens a game data CSV file. The resolver is only consulted for wide
// exports and may be nil otherwise.
func Open(path string, resolver Resolver) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open game data: %w", err)
	}

	r, err := NewReader(f, resolver)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header from r and prepares column lookups.
func NewReader(r io.Reader, resolver Resolver) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	// FieldsPerRecord stays 0: rows must match the header width.
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read game data header: %w", err)
	}

	gr := &Reader{
		csv:     cr,
		columns: make(map[string]int, len(header)),
		line:    1,
	}
	for i, name := range header {
		if _, dup := gr.columns[name]; !dup {
			gr.columns[name] = i
		}
	}

	gr.wonCol = gr.firstColumn(outcomeColumns)
	if gr.wonCol < 0 {
		return nil, ErrNoOutcomeColumn
	}
	gr.openingCol = gr.firstColumn(openingHandColumns)
	gr.drawnCol = gr.firstColumn(drawnColumns)

	if gr.openingCol < 0 || gr.drawnCol < 0 {
		gr.wide = wideColumns(header, resolver)
		if len(gr.wide) > 0 {
			gr.mode = ModeWide
		}
	}

	log := logging.With("gamedata")
	if gr.mode == ModeList && gr.openingCol < 0 && gr.drawnCol < 0 {
		log.Warn().Msg("no card columns found; games will count toward totals only")
	}
	log.Debug().
		Stringer("mode", gr.mode).
		Int("columns", len(header)).
		Int("card_columns", len(gr.wide)).
		Msg("parsed game data header")

	return gr, nil
}

// ColumnIndex returns the index of a header column.
func (r *Reader) ColumnIndex(name string) (int, bool) {
	i, ok := r.columns[name]
	return i, ok
}

// Mode reports how card presence is read.
func (r *Reader) Mode() Mode {
	return r.mode
}

// Games yields every row. Rows that cannot be used yield an error and
// iteration continues; a read failure of the underlying file ends it.
func (r *Reader) Games() iter.Seq2[Game, error] {
	return func(yield func(Game, error) bool) {
		for {
			record, err := r.csv.Read()
			if err == io.EOF {
				return
			}
			r.line++

			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					if !yield(Game{Line: r.line}, fmt.Errorf("line %d: %w", r.line, err)) {
						return
					}
					continue
				}
				yield(Game{Line: r.line}, fmt.Errorf("read game data: %w", err))
				return
			}

			game, err := r.parseRow(record)
			if !yield(game, err) {
				return
			}
		}
	}
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Reader) parseRow(record []string) (Game, error) {
	game := Game{Line: r.line}

	outcome, ok := field(record, r.wonCol)
	if !ok || strings.TrimSpace(outcome) == "" {
		return game, fmt.Errorf("line %d: %w", r.line, ErrMissingOutcome)
	}
	game.Won = parseOutcome(outcome)

	if r.mode == ModeWide {
		for _, wc := range r.wide {
			if flagSet(record, wc.opening) || flagSet(record, wc.drawn) {
				game.Cards = append(game.Cards, wc.cardID)
			}
		}
		return game, nil
	}

	for _, col := range []int{r.openingCol, r.drawnCol} {
		raw, ok := field(record, col)
		if !ok {
			continue
		}
		ids, err := ParseIDList(raw)
		if err != nil {
			return game, fmt.Errorf("line %d: %w", r.line, err)
		}
		game.Cards = append(game.Cards, ids...)
	}
	return game, nil
}

func (r *Reader) firstColumn(names []string) int {
	for _, name := range names {
		if i, ok := r.columns[name]; ok {
			return i
		}
	}
	return -1
}

// wideColumns pairs opening_hand_<name> with drawn_<name> columns for every
// card name the resolver knows. Unknown names are ignored.
func wideColumns(header []string, resolver Resolver) []wideColumn {
	if resolver == nil {
		return nil
	}

	var cols []wideColumn
	byID := make(map[uint64]int)

	for i, name := range header {
		cardName, ok := strings.CutPrefix(name, openingHandPrefix)
		if !ok {
			continue
		}
		id, ok := resolver.ResolveID(cardName)
		if !ok || id == 0 {
			continue
		}
		byID[id] = len(cols)
		cols = append(cols, wideColumn{cardID: id, opening: i, drawn: -1})
	}

	for i, name := range header {
		cardName, ok := strings.CutPrefix(name, drawnPrefix)
		if !ok {
			continue
		}
		id, ok := resolver.ResolveID(cardName)
		if !ok {
			continue
		}
		if j, ok := byID[id]; ok {
			cols[j].drawn = i
		}
	}
	return cols
}

func field(record []string, i int) (string, bool) {
	if i < 0 || i >= len(record) {
		return "", false
	}
	return record[i], true
}

func parseOutcome(s string) bool {
	switch strings.TrimSpace(s)[0] {
	case '1', 't', 'T':
		return true
	default:
		return false
	}
}

// flagSet reports whether a wide-format cell marks the card as present:
// a positive integer or a value starting with t/T/y/Y.
func flagSet(record []string, col int) bool {
	raw, ok := field(record, col)
	if !ok {
		return false
	}
	v := strings.TrimSpace(raw)
	if v == "" {
		return false
	}
	if n, err := strconv.ParseInt(leadingInt(v), 10, 64); err == nil {
		return n > 0
	}
	switch v[0] {
	case 't', 'T', 'y', 'Y':
		return true
	}
	return false
}

// leadingInt returns the optional sign and digits at the start of s.
func leadingInt(s string) string {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return ""
	}
	return s[:end]
}
