package helper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cevaris/ordered_map"
)

var reQuoted = regexp.MustCompile("^\"(.+)\"$")

// TokensToOrderedMap converts a string of the form, 'k1:v1,k2:v2' into an ordered map and returns a pointer to it.
// 1) Split on comma to find each key:value pair.
// 2) Split on the first colon to separate the key from the value.
// Keys and values are trimmed of spaces; tokens without a colon are ignored.
func TokensToOrderedMap(s string) *ordered_map.OrderedMap {
	o := ordered_map.NewOrderedMap()
	if strings.TrimSpace(s) == "" {
		return o
	}
	for _, token := range strings.Split(s, ",") {
		k, v := Split(token, ":")
		k = strings.TrimSpace(k)
		if k == "" || !strings.Contains(token, ":") {
			continue
		}
		o.Set(k, strings.TrimSpace(v))
	}
	return o
}

// OrderedMapToStringMap copies an ordered map of string keys and values into a plain map.
func OrderedMapToStringMap(o *ordered_map.OrderedMap) map[string]string {
	m := make(map[string]string, o.Len())
	iter := o.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		m[fmt.Sprint(kv.Key)] = fmt.Sprint(kv.Value)
	}
	return m
}

// CsvToStringSliceTrimSpaces converts a string of the form, 'f1, f2, f3...' into a slice of string values.
// Empty tokens are dropped so an empty input gives an empty slice.
func CsvToStringSliceTrimSpaces(s string) []string {
	retval := make([]string, 0)
	for _, token := range strings.Split(s, ",") {
		if t := strings.TrimSpace(token); t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// GetTrueFalseStringAsBool trims spaces from s and checks if it matches "true" (case insensitive).
func GetTrueFalseStringAsBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// Split returns t, u when s is of the form t c u.
// If not, return s, "".
func Split(s string, c string) (string, string) {
	i := strings.Index(s, c)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(c):]
}

// ToUpperQuotedIfNotQuoted converts any non-quoted strings to upper case and quotes them.
// A new slice is returned.
func ToUpperQuotedIfNotQuoted(s []string) []string {
	retval := make([]string, len(s))
	for idx, v := range s {
		if reQuoted.MatchString(v) {
			retval[idx] = v
		} else { // else the identifier is NOT quoted...
			retval[idx] = fmt.Sprintf("%q", strings.ToUpper(v))
		}
	}
	return retval
}
