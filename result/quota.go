package result

import "unicode/utf8"

// Quotas bound the amount of material converted into displayable output.
// The bootstrap unit applies the same caps child-side when reflecting
// runtime values; host-side they guard preformatted text and decoded
// object graphs against pathological output.
type Quotas struct {
	MaxStringLength int
	MaxItems        int
	MaxDepth        int
}

// DefaultQuotas returns the caps used when none are configured.
func DefaultQuotas() Quotas {
	return Quotas{
		MaxStringLength: 10240,
		MaxItems:        64,
		MaxDepth:        4,
	}
}

// Text bounds a preformatted string, truncating at a rune boundary.
func (q Quotas) Text(s string) string {
	if q.MaxStringLength <= 0 || len(s) <= q.MaxStringLength {
		return s
	}
	cut := q.MaxStringLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

// Bound applies the quotas to a decoded dump graph, trimming header text,
// child counts, and nesting depth in place.
func (q Quotas) Bound(d *Dump) *Dump {
	if d == nil {
		return nil
	}
	q.bound(d, 0)
	return d
}

func (q Quotas) bound(d *Dump, depth int) {
	d.Header = q.Text(d.Header)
	if q.MaxDepth > 0 && depth >= q.MaxDepth {
		d.Children = nil
		return
	}
	if q.MaxItems > 0 && len(d.Children) > q.MaxItems {
		d.Children = d.Children[:q.MaxItems]
	}
	for _, c := range d.Children {
		q.bound(c, depth+1)
	}
}
