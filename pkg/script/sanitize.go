package script

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxValueSize bounds every string prop value received from a remote host.
	DefaultMaxValueSize = 4096
	// EnvMaxValueSize overrides DefaultMaxValueSize.
	EnvMaxValueSize = "ARBOR_MAX_VALUE_SIZE"
)

var (
	ErrValueTooLarge = errors.New("value exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("value contains invalid UTF-8 sequences")
)

// SanitizeString enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return.
func SanitizeString(s string) (string, error) {
	limit := maxValueSize()
	if len(s) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrValueTooLarge, len(s), limit)
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(s, isUnsafeControl) < 0 {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isUnsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxValueSize() int {
	if val := os.Getenv(EnvMaxValueSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxValueSize
}

// Sanitize cleans the prop values carried by the step in place, including values
// nested in maps and lists. Ids and component names are left to the editor.
func (s Step) Sanitize() error {
	switch args := s.Args.(type) {
	case *AddArgs:
		for i := range args.Nodes {
			if err := sanitizeSpec(&args.Nodes[i]); err != nil {
				return err
			}
		}
	case *SetPropArgs:
		return sanitizeMap(args.Set)
	case *DragArgs:
		if args.New != nil {
			return sanitizeSpec(args.New)
		}
	}
	return nil
}

func sanitizeSpec(spec *NodeSpec) error {
	if err := sanitizeMap(spec.Props); err != nil {
		return fmt.Errorf("node %q: %w", spec.ID, err)
	}
	return nil
}

func sanitizeMap(m map[string]any) error {
	for k, v := range m {
		clean, err := sanitizeValue(v)
		if err != nil {
			return fmt.Errorf("prop %q: %w", k, err)
		}
		m[k] = clean
	}
	return nil
}

func sanitizeValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return SanitizeString(val)
	case map[string]any:
		return val, sanitizeMap(val)
	case []any:
		for i, item := range val {
			clean, err := sanitizeValue(item)
			if err != nil {
				return nil, err
			}
			val[i] = clean
		}
		return val, nil
	}
	return v, nil
}
