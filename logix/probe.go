package logix

import "fmt"

// probeMaxCandidate bounds the exponential growth phase so a runaway
// controller response can't spin this forever.
const probeMaxCandidate = 1 << 20

// ProbeArrayLength determines the element count of a top-level array tag
// by exponential-then-binary search: read(name, k) is tried with k=100,
// doubling while it succeeds, then bisected between the last good count
// and the first rejected one until they are adjacent. The tag's length
// is the last count that read successfully.
//
// This is needed because the symbol table does not reliably carry array
// length (parseSymbolListResponse reads only name and type) - reading
// the controller's actual acceptance boundary is the only method that
// works uniformly across firmware versions.
func (p *PLC) ProbeArrayLength(tagName string) (int, error) {
	read := func(count int) bool {
		if count <= 0 {
			return true
		}
		_, err := p.ReadTagCount(tagName, uint16(count))
		return err == nil
	}
	return probeLength(read), nil
}

// probeLength runs the exponential-then-binary search described above
// against an arbitrary accept/reject oracle. Factored out so it can be
// unit tested without a live controller.
func probeLength(readOK func(count int) bool) int {
	lower := 0
	k := 100
	for k <= probeMaxCandidate && readOK(k) {
		lower = k
		k *= 2
	}
	upper := k

	for upper-lower > 1 {
		mid := lower + (upper-lower)/2
		if readOK(mid) {
			lower = mid
		} else {
			upper = mid
		}
	}
	return lower
}

// ProbeArrayLength resolves the element count of a top-level array tag
// against the connected controller. See PLC.ProbeArrayLength.
func (c *Client) ProbeArrayLength(tagName string) (int, error) {
	if c == nil || c.plc == nil {
		return 0, fmt.Errorf("logix: client not connected")
	}
	return c.plc.ProbeArrayLength(tagName)
}
