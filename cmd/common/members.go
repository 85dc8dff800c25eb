package common

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/openfga/membersync/pkg/membership"
)

// ParseMembers reads one member id per line. Blank lines and lines starting
// with '#' are skipped.
func ParseMembers(r io.Reader) (membership.Set, error) {
	set := make(membership.Set)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		id, err := uuid.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid member id '%s': %w", line, text, err)
		}
		set.Add(membership.Member(id))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return set, nil
}

// ReadMembersFile reads a member list written by [WriteMembers] or by hand.
func ReadMembersFile(path string) (membership.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	set, err := ParseMembers(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// WriteMembers writes the ids of set to w, one per line in ascending order.
func WriteMembers(w io.Writer, set membership.Set) error {
	for _, m := range set.Members() {
		if _, err := fmt.Fprintln(w, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// ErrWriter formats to an [io.Writer] and remembers the first write error,
// after which it writes nothing.
type ErrWriter struct {
	w   io.Writer
	err error
}

func NewErrWriter(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}

func (ew *ErrWriter) Printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *ErrWriter) Err() error {
	return ew.err
}
