package redis

import (
	"fmt"

	"github.com/mcoot/keyquest/internal/storage"
)

// Key prefix for all table data
const keyPrefix = "keyquest"

// sequenceKey returns the counter used to mint row locators
func sequenceKey(table string) string {
	return fmt.Sprintf("%s:table:%s:seq", keyPrefix, table)
}

// rowsIndexKey returns the LIST of locators in insertion order
func rowsIndexKey(table string) string {
	return fmt.Sprintf("%s:table:%s:rows", keyPrefix, table)
}

// rowKey returns the HASH holding one row's cells
func rowKey(table string, loc storage.Locator) string {
	return fmt.Sprintf("%s:table:%s:row:%s", keyPrefix, table, loc)
}
