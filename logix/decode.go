package logix

import (
	"fmt"

	"ethlogix/cip"
)

// templateFor fetches a template by ID, caching the result so repeated
// reads of the same UDT/AOI don't re-fetch its definition from the PLC.
func (c *Client) templateFor(templateID uint16) (*Template, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("templateFor: nil client")
	}

	c.templateMu.Lock()
	if tmpl, ok := c.templateCache[templateID]; ok {
		c.templateMu.Unlock()
		return tmpl, nil
	}
	c.templateMu.Unlock()

	tmpl, err := c.plc.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}

	c.templateMu.Lock()
	if c.templateCache == nil {
		c.templateCache = make(map[uint16]*Template)
	}
	c.templateCache[templateID] = tmpl
	c.templateMu.Unlock()

	return tmpl, nil
}

// DecodeStruct decodes the raw bytes of a structure/UDT tag value into a
// map keyed by member name, fetching (and caching) the member layout from
// the Template Object as needed. Hidden members (internal padding, reserved
// fields) are omitted.
func (c *Client) DecodeStruct(dataType uint16, data []byte) (map[string]interface{}, error) {
	if !IsStructure(dataType) {
		return nil, fmt.Errorf("DecodeStruct: data type 0x%04X is not a structure", dataType)
	}

	templateID := dataType & 0x0FFF
	tmpl, err := c.templateFor(templateID)
	if err != nil {
		return nil, fmt.Errorf("DecodeStruct: %w", err)
	}

	return c.decodeWithTemplate(tmpl, data)
}

// decodeWithTemplate walks a template's members, pulling each one's value
// out of the raw structure bytes per member.Offset/member.Type.
func (c *Client) decodeWithTemplate(tmpl *Template, data []byte) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(tmpl.MemberMap))

	for i := range tmpl.Members {
		member := &tmpl.Members[i]
		if member.Hidden || member.Name == "" {
			continue
		}

		val, err := c.decodeMember(member, data)
		if err != nil {
			debugLogVerbose("decodeWithTemplate: skipping member %q of %q: %v", member.Name, tmpl.Name, err)
			continue
		}
		result[member.Name] = val
	}

	return result, nil
}

// decodeMember extracts and converts a single member's value from its
// parent structure's raw bytes, recursing for nested structures.
func (c *Client) decodeMember(member *TemplateMember, structData []byte) (interface{}, error) {
	baseType := member.Type & 0x0FFF

	if member.IsStructure() {
		nestedTmpl, err := c.templateFor(baseType)
		if err != nil {
			return nil, err
		}

		elemSize := int(nestedTmpl.Size)
		if elemSize <= 0 {
			elemSize = 4
		}

		if member.IsArray() {
			count := member.ElementCount()
			elems := make([]map[string]interface{}, 0, count)
			for i := 0; i < count; i++ {
				start := int(member.Offset) + i*elemSize
				if start >= len(structData) {
					break
				}
				end := start + elemSize
				if end > len(structData) {
					end = len(structData)
				}
				sub, err := c.decodeWithTemplate(nestedTmpl, structData[start:end])
				if err != nil {
					continue
				}
				elems = append(elems, sub)
			}
			return elems, nil
		}

		start := int(member.Offset)
		if start >= len(structData) {
			return nil, fmt.Errorf("member %q offset %d out of range (%d bytes)", member.Name, start, len(structData))
		}
		end := start + elemSize
		if end > len(structData) {
			end = len(structData)
		}
		return c.decodeWithTemplate(nestedTmpl, structData[start:end])
	}

	if baseType == TypeBOOL {
		if int(member.Offset) >= len(structData) {
			return nil, fmt.Errorf("member %q offset %d out of range", member.Name, member.Offset)
		}
		bit := (structData[member.Offset] >> member.BitOffset) & 1
		return bit != 0, nil
	}

	elemSize := cip.TypeSize(baseType)
	if elemSize <= 0 {
		elemSize = 1
	}

	count := 1
	if member.IsArray() {
		count = member.ElementCount()
	}

	start := int(member.Offset)
	if start >= len(structData) {
		return nil, fmt.Errorf("member %q offset %d out of range (%d bytes)", member.Name, start, len(structData))
	}
	end := start + elemSize*count
	if end > len(structData) {
		end = len(structData)
	}
	elemData := structData[start:end]

	if count == 1 {
		return decodeAtomic(baseType, elemData)
	}

	values := make([]interface{}, 0, count)
	for off := 0; off+elemSize <= len(elemData); off += elemSize {
		v, err := decodeAtomic(baseType, elemData[off:off+elemSize])
		if err != nil {
			break
		}
		values = append(values, v)
	}
	return values, nil
}

// decodeAtomic converts one atomic member's raw bytes to a Go value using
// the C1 codec, falling back to a raw byte dump for any type the codec
// table doesn't cover (e.g. STRING, which is variable-length).
func decodeAtomic(code uint16, data []byte) (interface{}, error) {
	switch {
	case cip.IsSignedInt(code):
		return cip.UnpackInt(code, data)
	case cip.IsUnsignedInt(code):
		return cip.UnpackUint(code, data)
	case cip.IsFloat(code):
		return cip.UnpackFloat(code, data)
	default:
		sub := &TagValue{DataType: code, Bytes: data, Count: 1}
		return sub.GoValue(), nil
	}
}
