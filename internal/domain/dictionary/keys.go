package dictionary

import "fmt"

// Cache key scheme. Every key is prefixed with the dictionary type so
// pattern invalidation can drop one dictionary wholesale.
func keyItems(t Type) string            { return fmt.Sprintf("dictionary:%s:items", t) }
func keyItem(t Type, id string) string  { return fmt.Sprintf("dictionary:%s:item:%s", t, id) }
func keySearch(t Type, q string) string { return fmt.Sprintf("dictionary:%s:search:%s", t, q) }
func keyFilter(t Type, f Filters) string {
	return fmt.Sprintf("dictionary:%s:filter:%s", t, f.Key())
}
func keyStatistics(t Type) string { return fmt.Sprintf("dictionary:%s:statistics", t) }

// keyPrefixPattern matches every cache key of one dictionary type.
func keyPrefixPattern(t Type) string { return fmt.Sprintf("^dictionary:%s:", t) }

// tagStatistics marks entries derived from item counts.
const tagStatistics = "statistics"
