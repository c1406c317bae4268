package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/unkn0wn-root/listcount"
)

// parseFilters builds a FilterSet from name=value string and number flags and
// bare names for nulls.
func parseFilters(strs, nums, nulls []string) (listcount.FilterSet, error) {
	f := make(listcount.FilterSet, len(strs)+len(nums)+len(nulls))
	set := func(name string, v listcount.Value) error {
		if name == "" {
			return errors.New("empty filter name")
		}
		if _, dup := f[name]; dup {
			return fmt.Errorf("filter %q given twice", name)
		}
		f[name] = v
		return nil
	}

	for _, kv := range strs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("filter %q: want name=value", kv)
		}
		if err := set(k, listcount.String(v)); err != nil {
			return nil, err
		}
	}
	for _, kv := range nums {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("num %q: want name=value", kv)
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("num %q: %w", kv, err)
		}
		if err := set(k, listcount.Number(n)); err != nil {
			return nil, err
		}
	}
	for _, k := range nulls {
		if err := set(k, listcount.Null()); err != nil {
			return nil, err
		}
	}
	return f, nil
}
