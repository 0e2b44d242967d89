package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/eigerco/berrydb/pkg/log"
	"github.com/eigerco/berrydb/pkg/store"
)

func (c cli) decode(s string) ([]byte, error) {
	if !c.hex {
		return []byte(s), nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex %q: %w", errUsage, s, err)
	}
	return b, nil
}

func (c cli) encode(b []byte) string {
	if c.hex {
		return hex.EncodeToString(b)
	}
	return string(b)
}

func expectArgs(cmd string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", errUsage, cmd, n, len(args))
	}
	return nil
}

func (c cli) get(h *store.Handle, args []string) error {
	if err := expectArgs("get", args, 1); err != nil {
		return err
	}
	key, err := c.decode(args[0])
	if err != nil {
		return err
	}
	value, err := h.Get(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.stdout, c.encode(value))
	return err
}

func (c cli) put(h *store.Handle, args []string) error {
	if err := expectArgs("put", args, 2); err != nil {
		return err
	}
	key, err := c.decode(args[0])
	if err != nil {
		return err
	}
	value, err := c.decode(args[1])
	if err != nil {
		return err
	}
	return h.Put(key, value)
}

func (c cli) delete(h *store.Handle, args []string) error {
	if err := expectArgs("delete", args, 1); err != nil {
		return err
	}
	key, err := c.decode(args[0])
	if err != nil {
		return err
	}
	return h.Delete(key)
}

func (c cli) exists(h *store.Handle, args []string) error {
	if err := expectArgs("exists", args, 1); err != nil {
		return err
	}
	key, err := c.decode(args[0])
	if err != nil {
		return err
	}
	ok, err := h.Exists(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.stdout, ok)
	return err
}

func (c cli) mget(h *store.Handle, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: mget takes at least one key", errUsage)
	}
	keys := make([][]byte, len(args))
	for i, a := range args {
		k, err := c.decode(a)
		if err != nil {
			return err
		}
		keys[i] = k
	}
	values, err := h.MultiGet(keys)
	if err != nil {
		return err
	}
	for i, v := range values {
		out := "(not found)"
		if v != nil {
			out = c.encode(v)
		}
		if _, err := fmt.Fprintf(c.stdout, "%s\t%s\n", args[i], out); err != nil {
			return err
		}
	}
	return nil
}

func (c cli) scan(h *store.Handle, args []string) error {
	if err := expectArgs("scan", args, 0); err != nil {
		return err
	}
	traverse := h.ForEach
	if c.reverse {
		traverse = h.ForEachReverse
	}

	n := 0
	return traverse(func(key, value []byte) error {
		if c.limit > 0 && n == c.limit {
			return store.ErrStopIteration
		}
		n++
		_, err := fmt.Fprintf(c.stdout, "%s\t%s\n", c.encode(key), c.encode(value))
		return err
	})
}

// batch reads one operation per line. Blank lines and lines starting with
// '#' are skipped. Everything after the key of a put is the value.
func (c cli) batch(h *store.Handle, args []string) error {
	if err := expectArgs("batch", args, 0); err != nil {
		return err
	}

	b := db.NewBatch()
	scanner := bufio.NewScanner(c.stdin)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := c.parseOp(b, text); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read batch: %w", err)
	}

	if err := h.Write(b); err != nil {
		return err
	}
	log.CLI.Info().Int("ops", b.Len()).Int("bytes", b.Size()).Msg("batch applied")
	_, err := fmt.Fprintf(c.stdout, "applied %d operation(s)\n", b.Len())
	return err
}

func (c cli) parseOp(b *db.Batch, text string) error {
	fields := strings.SplitN(text, " ", 3)
	switch fields[0] {
	case "put":
		if len(fields) != 3 {
			return fmt.Errorf("%w: put needs a key and a value", errUsage)
		}
		key, err := c.decode(fields[1])
		if err != nil {
			return err
		}
		value, err := c.decode(fields[2])
		if err != nil {
			return err
		}
		return b.Put(key, value)
	case "delete":
		if len(fields) != 2 {
			return fmt.Errorf("%w: delete needs exactly one key", errUsage)
		}
		key, err := c.decode(fields[1])
		if err != nil {
			return err
		}
		return b.Delete(key)
	default:
		return fmt.Errorf("%w: unknown operation %q", errUsage, fields[0])
	}
}

func (c cli) stats(h *store.Handle, args []string) error {
	if err := expectArgs("stats", args, 0); err != nil {
		return err
	}
	s, err := h.Stats()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.stdout,
		"engine:      %s\nkeys:        %s\nkey bytes:   %s\nvalue bytes: %s\ntotal:       %s\n",
		h.Engine(),
		humanize.Comma(int64(s.Keys)),
		humanize.IBytes(s.KeyBytes),
		humanize.IBytes(s.ValueBytes),
		humanize.IBytes(s.KeyBytes+s.ValueBytes),
	)
	return err
}
