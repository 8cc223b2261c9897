package kb

import (
	"fmt"
	"io"
	"strings"
)

// Listing renders the fact sequence as statements, one per line.
type Listing struct {
	Store *Store
	// ShowDerived appends the producing rule to derived facts.
	ShowDerived bool
}

// Write writes the listing to w.
func (l *Listing) Write(w io.Writer) error {
	if l.Store == nil {
		return fmt.Errorf("listing: nil store")
	}
	var b strings.Builder
	for _, f := range l.Store.facts {
		b.WriteString(f.String())
		if l.ShowDerived {
			if d, ok := l.Store.derivations[f]; ok {
				fmt.Fprintf(&b, "  # rule %d, ?x=%s", d.Rule+1, d.Binding)
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
