package color

import "fmt"

// RGB is a 24-bit color value packed as 0xRRGGBB. The alpha channel of a
// source pixel is discarded before packing, so two pixels that differ only
// in transparency count as the same color.
type RGB uint32

// FromARGB converts a 32-bit ARGB sample to an RGB value by dropping the
// high (alpha) byte.
func FromARGB(v uint32) RGB {
	return RGB(v & 0xFFFFFF)
}

// FromChannels packs 8-bit red, green, and blue channels.
func FromChannels(r, g, b uint8) RGB {
	return RGB(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Hex renders the color as a 6-character uppercase hexadecimal string,
// e.g. "FE123C".
func (c RGB) Hex() string {
	return fmt.Sprintf("%06X", uint32(c)&0xFFFFFF)
}

// Counter accumulates per-color frequencies over the pixels of one image.
// It is built and discarded per image and is not safe for concurrent use.
type Counter struct {
	counts map[RGB]int64
	// first-seen sequence per distinct color, used to break count ties
	seen map[RGB]int
	next int
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{
		counts: make(map[RGB]int64),
		seen:   make(map[RGB]int),
	}
}

// Add records one occurrence of a color.
func (c *Counter) Add(v RGB) {
	if _, ok := c.counts[v]; !ok {
		c.seen[v] = c.next
		c.next++
	}
	c.counts[v]++
}

// AddARGB records one occurrence of a 32-bit ARGB sample.
func (c *Counter) AddARGB(v uint32) {
	c.Add(FromARGB(v))
}

// Total returns the number of samples recorded.
func (c *Counter) Total() int64 {
	var total int64
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Distinct returns the number of distinct colors recorded.
func (c *Counter) Distinct() int {
	return len(c.counts)
}

// Count returns the occurrence count for a color.
func (c *Counter) Count(v RGB) int64 {
	return c.counts[v]
}

type slot struct {
	color RGB
	count int64
	seen  int
}

// ranksAbove reports whether entry a outranks entry b: higher count wins,
// equal counts rank by first appearance in the pixel scan.
func ranksAbove(a, b slot) bool {
	if a.count != b.count {
		return a.count > b.count
	}
	return a.seen < b.seen
}

// Top3 returns the up-to-three most frequent colors, most frequent first.
// Selection is a single linear scan over the frequency table holding three
// running slots, so it is O(distinct colors) rather than a full sort.
// Slots that never received a nonzero count are omitted, so an image with
// fewer than three distinct colors yields a shorter result.
func (c *Counter) Top3() []RGB {
	// A slot with count 0 and a seen value past every real entry loses
	// any comparison, so empty slots never leak into the result order.
	empty := slot{count: 0, seen: c.next}
	slots := [3]slot{empty, empty, empty}

	for v, n := range c.counts {
		entry := slot{color: v, count: n, seen: c.seen[v]}
		switch {
		case ranksAbove(entry, slots[0]):
			slots[2] = slots[1]
			slots[1] = slots[0]
			slots[0] = entry
		case ranksAbove(entry, slots[1]):
			slots[2] = slots[1]
			slots[1] = entry
		case ranksAbove(entry, slots[2]):
			slots[2] = entry
		}
	}

	top := make([]RGB, 0, 3)
	for _, s := range slots {
		if s.count == 0 {
			break
		}
		top = append(top, s.color)
	}
	return top
}
