package gamedata

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDList parses a bracketed list of card ids such as "[101,202,303]".
// Brackets, quotes, whitespace and separators are ignored; every run of
// digits is one id. An empty list returns nil.
func ParseIDList(s string) ([]uint64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if len(fields) == 0 {
		return nil, nil
	}

	ids := make([]uint64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse card id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
