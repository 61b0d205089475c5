package logix

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"ethlogix/cip"
	"ethlogix/logging"
)

// Client is a high-level wrapper that manages connection lifecycle
// and provides simplified methods for common PLC operations.
type Client struct {
	plc *PLC // Low-level access preserved

	templateMu    sync.Mutex
	templateCache map[uint16]*Template
}

// options holds configuration options for Connect.
type options struct {
	slot            byte
	backplane       byte
	routePath       []byte
	skipForwardOpen bool

	port    uint16
	timeout time.Duration
	context string

	foSet              bool
	foConnectionID     uint32
	foSerialNumber     uint16
	foVendorID         uint16
	foOriginatorSerial uint32
}

// Option is a functional option for Connect.
type Option func(*options)

// WithSlot configures the CPU slot for ControlLogix systems.
// This sets up backplane routing to the specified slot.
func WithSlot(slot byte) Option {
	return func(o *options) {
		o.slot = slot
		o.routePath = nil // Slot routing overrides custom route path
	}
}

// WithBackplaneSlot configures routing through a specific backplane port to
// a specific CPU slot. Use this when the backplane port differs from the
// conventional port 1 (e.g., routing through a non-default chassis).
func WithBackplaneSlot(backplane, slot byte) Option {
	return func(o *options) {
		o.backplane = backplane
		o.slot = slot
		o.routePath = nil
	}
}

// WithRoutePath configures explicit routing for the PLC.
// Use this when connecting through a gateway or communication module.
func WithRoutePath(path []byte) Option {
	return func(o *options) {
		o.routePath = path
	}
}

// WithoutConnection skips the Forward Open and uses unconnected messaging only.
// Useful when connected messaging is not supported or not desired.
func WithoutConnection() Option {
	return func(o *options) {
		o.skipForwardOpen = true
	}
}

// WithTimeout configures the TCP dial and transaction timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithPort configures the EtherNet/IP TCP port. Defaults to 0xAF12 (44818).
func WithPort(port uint16) Option {
	return func(o *options) {
		o.port = port
	}
}

// WithContext configures the 8-byte sender context echoed in encapsulation replies.
func WithContext(context string) Option {
	return func(o *options) {
		o.context = context
	}
}

// WithForwardOpenIdentity configures the Forward Open originator identity:
// connection ID (cid), connection serial number (csn), vendor ID (vid), and
// originator serial number (vsn). Pass 0 for any field to keep the
// pylogix-compatible default/random value.
func WithForwardOpenIdentity(connectionID uint32, serialNumber uint16, vendorID uint16, originatorSerial uint32) Option {
	return func(o *options) {
		o.foSet = true
		o.foConnectionID = connectionID
		o.foSerialNumber = serialNumber
		o.foVendorID = vendorID
		o.foOriginatorSerial = originatorSerial
	}
}

// Connect establishes a connection to a Logix PLC at the given address.
// It attempts to establish a CIP connection (Forward Open) for efficient messaging.
// If Forward Open fails, it falls back to unconnected messaging with a warning.
func Connect(address string, opts ...Option) (*Client, error) {
	// Apply options
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	// Create low-level PLC connection
	plc, err := NewPLCWithOptions(address, cfg.port, cfg.timeout, cfg.context)
	if err != nil {
		return nil, fmt.Errorf("Connect: %w", err)
	}

	// Configure routing
	if cfg.routePath != nil {
		plc.SetRoutePath(cfg.routePath)
	} else if cfg.backplane > 0 {
		plc.SetRoutePath([]byte{cfg.backplane, cfg.slot})
	} else if cfg.slot > 0 {
		plc.SetSlotRouting(cfg.slot)
	}

	if cfg.foSet {
		plc.SetForwardOpenIdentity(cfg.foConnectionID, cfg.foSerialNumber, cfg.foVendorID, cfg.foOriginatorSerial)
	}

	// Attempt Forward Open for connected messaging
	if !cfg.skipForwardOpen {
		err = plc.OpenConnection()
		if err != nil {
			logging.DebugLog("Logix", "Forward Open failed, using unconnected messaging: %v", err)
		}
	}

	return &Client{plc: &plc}, nil
}

// Keepalive sends a lightweight request over the connected session to keep
// the Forward Open connection alive. No-op when using unconnected messaging.
func (c *Client) Keepalive() error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("Keepalive: nil client")
	}
	return c.plc.Keepalive()
}

// Close releases all resources associated with the client.
func (c *Client) Close() {
	if c == nil || c.plc == nil {
		return
	}
	c.plc.Close()
}

// PLC returns the underlying low-level PLC for advanced operations.
func (c *Client) PLC() *PLC {
	return c.plc
}

// IsConnected returns true if a CIP connection is established.
func (c *Client) IsConnected() bool {
	return c.plc != nil && c.plc.IsConnected()
}

// ConnectionInfo returns information about the current connection.
// Returns connected (CIP connection active), size (negotiated connection size in bytes).
// If not using connected messaging, size is 0.
func (c *Client) ConnectionInfo() (connected bool, size uint16) {
	if c == nil || c.plc == nil {
		return false, 0
	}
	return c.plc.IsConnected(), c.plc.connSize
}

// ConnectionMode returns a human-readable string describing the connection mode.
func (c *Client) ConnectionMode() string {
	if c == nil || c.plc == nil {
		return "Not connected"
	}
	if c.plc.IsConnected() {
		if c.plc.connSize == ConnectionSizeLarge {
			return "Connected (Large Forward Open, 4002 bytes)"
		}
		return "Connected (Standard Forward Open, 504 bytes)"
	}
	return "Unconnected messaging"
}

// Programs returns the list of program names in the PLC.
// Returns names like "MainProgram", "SafetyProgram", etc. (without "Program:" prefix).
func (c *Client) Programs() ([]string, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("Programs: nil client")
	}

	fullNames, err := c.plc.ListPrograms()
	if err != nil {
		return nil, fmt.Errorf("Programs: %w", err)
	}

	// Strip "Program:" prefix for cleaner API
	programs := make([]string, len(fullNames))
	for i, name := range fullNames {
		if len(name) > 8 && name[:8] == "Program:" {
			programs[i] = name[8:]
		} else {
			programs[i] = name
		}
	}

	return programs, nil
}

// ControllerTags returns all controller-scope tags (excluding program entries and system tags).
func (c *Client) ControllerTags() ([]TagInfo, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ControllerTags: nil client")
	}

	allTags, err := c.plc.ListTags()
	if err != nil {
		return nil, fmt.Errorf("ControllerTags: %w", err)
	}

	// Filter to only readable data tags at controller scope
	var dataTags []TagInfo
	for _, t := range allTags {
		if t.IsReadable() {
			dataTags = append(dataTags, t)
		}
	}

	return dataTags, nil
}

// ProgramTags returns all tags within a specific program.
// programName can be just the name (e.g., "MainProgram") or full form ("Program:MainProgram").
func (c *Client) ProgramTags(program string) ([]TagInfo, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ProgramTags: nil client")
	}

	tags, err := c.plc.ListProgramTags(program)
	if err != nil {
		return nil, fmt.Errorf("ProgramTags: %w", err)
	}

	// Filter to only readable data tags
	var dataTags []TagInfo
	for _, t := range tags {
		if t.IsReadable() {
			dataTags = append(dataTags, t)
		}
	}

	return dataTags, nil
}

// AllTags returns all readable tags (controller-scope and program-scope).
// This excludes program entries, routines, and system tags.
func (c *Client) AllTags() ([]TagInfo, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("AllTags: nil client")
	}

	tags, err := c.plc.ListDataTags()
	if err != nil {
		return nil, fmt.Errorf("AllTags: %w", err)
	}

	return tags, nil
}

// Read reads one or more tags by name and returns their values.
// Each tag in the result includes its own error status (nil if successful).
// The method returns an error only for transport-level failures.
func (c *Client) Read(tagNames ...string) ([]*TagValue, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("Read: nil client")
	}
	if len(tagNames) == 0 {
		return nil, nil
	}

	// Determine batch size based on connection mode
	batchSize := 5 // Conservative for unconnected messaging
	if c.plc.IsConnected() {
		batchSize = 50
	}

	results := make([]*TagValue, 0, len(tagNames))

	// Process in batches
	for i := 0; i < len(tagNames); i += batchSize {
		end := i + batchSize
		if end > len(tagNames) {
			end = len(tagNames)
		}
		batch := tagNames[i:end]

		tags, err := c.plc.ReadMultiple(batch)
		if err != nil {
			// Transport-level failure - mark all tags in batch as failed
			for _, name := range batch {
				results = append(results, &TagValue{
					Name:  name,
					Error: err,
				})
			}
			continue
		}

		// Convert results
		for j, tag := range tags {
			if tag == nil {
				results = append(results, &TagValue{
					Name:  batch[j],
					Error: fmt.Errorf("tag read failed"),
				})
			} else {
				results = append(results, &TagValue{
					Name:     tag.Name,
					DataType: tag.DataType,
					Bytes:    tag.Bytes,
					Count:    elementCountFromBytes(tag.DataType, tag.Bytes),
					Error:    nil,
				})
			}
		}
	}

	return results, nil
}

// ReadAll discovers and reads all readable tags from the PLC.
// This is a convenience method that combines AllTags() and Read().
func (c *Client) ReadAll() ([]*TagValue, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("ReadAll: nil client")
	}

	tags, err := c.AllTags()
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}

	tagNames := make([]string, len(tags))
	for i, t := range tags {
		tagNames[i] = t.Name
	}

	return c.Read(tagNames...)
}

// Write writes a value to a tag. The value type is inferred and converted appropriately.
// Supported value types: bool, int/int8/int16/int32/int64, uint/uint8/uint16/uint32/uint64,
// float32/float64, string.
func (c *Client) Write(tagName string, value interface{}) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("Write: nil client")
	}

	dataType, data, err := encodeWriteValue(value)
	if err != nil {
		return fmt.Errorf("Write: %w", err)
	}

	return c.plc.WriteTag(tagName, dataType, data)
}

// WriteAll writes several tags in a single batched request (Multiple Service
// Packet). values maps tag name to a Go value of the same types Write
// accepts. Returns one WriteResult per input tag, in no particular order;
// a value that fails to encode is reported as a failed WriteResult rather
// than aborting the whole batch.
func (c *Client) WriteAll(values map[string]interface{}) ([]WriteResult, error) {
	if c == nil || c.plc == nil {
		return nil, fmt.Errorf("WriteAll: nil client")
	}

	items := make([]WriteItem, 0, len(values))
	var preEncodeFailures []WriteResult

	for name, value := range values {
		dataType, data, err := encodeWriteValue(value)
		if err != nil {
			preEncodeFailures = append(preEncodeFailures, WriteResult{Name: name, Error: fmt.Errorf("WriteAll: %w", err)})
			continue
		}
		items = append(items, WriteItem{Name: name, DataType: dataType, Data: data})
	}

	results, err := c.plc.WriteMultiple(items)
	if err != nil {
		return nil, fmt.Errorf("WriteAll: %w", err)
	}

	return append(results, preEncodeFailures...), nil
}

// encodeWriteValue converts a Go value into the CIP data type code and raw
// little-endian byte encoding WriteTag/WriteMultiple expect.
func encodeWriteValue(value interface{}) (dataType uint16, data []byte, err error) {
	switch v := value.(type) {
	case bool:
		dataType = TypeBOOL
		if v {
			data = []byte{1}
		} else {
			data = []byte{0}
		}

	case int8:
		dataType = TypeSINT
		data, err = cip.PackInt(dataType, int64(v))

	case int16:
		dataType = TypeINT
		data, err = cip.PackInt(dataType, int64(v))

	case int32:
		dataType = TypeDINT
		data, err = cip.PackInt(dataType, int64(v))

	case int64:
		dataType = TypeLINT
		data, err = cip.PackInt(dataType, v)

	case int:
		// Default int to DINT (most common)
		dataType = TypeDINT
		data, err = cip.PackInt(dataType, int64(v))

	case uint8:
		dataType = TypeUSINT
		data, err = cip.PackUint(dataType, uint64(v))

	case uint16:
		dataType = TypeUINT
		data, err = cip.PackUint(dataType, uint64(v))

	case uint32:
		dataType = TypeUDINT
		data, err = cip.PackUint(dataType, uint64(v))

	case uint64:
		dataType = TypeULINT
		data, err = cip.PackUint(dataType, v)

	case uint:
		// Default uint to UDINT
		dataType = TypeUDINT
		data, err = cip.PackUint(dataType, uint64(v))

	case float32:
		dataType = TypeREAL
		data, err = cip.PackFloat(dataType, float64(v))

	case float64:
		dataType = TypeLREAL
		data, err = cip.PackFloat(dataType, v)

	case string:
		// Write as Logix STRING (4-byte length prefix + data)
		dataType = TypeSTRING
		strBytes := []byte(v)
		data = binary.LittleEndian.AppendUint32(nil, uint32(len(strBytes)))
		data = append(data, strBytes...)

	default:
		return 0, nil, fmt.Errorf("unsupported value type %T", value)
	}

	if err != nil {
		return 0, nil, err
	}
	return dataType, data, nil
}

// WriteBool writes a boolean value to a tag.
func (c *Client) WriteBool(tagName string, val bool) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteBool: nil client")
	}
	data := []byte{0}
	if val {
		data[0] = 1
	}
	return c.plc.WriteTag(tagName, TypeBOOL, data)
}

// WriteInt writes an integer value to a tag.
// Writes as DINT (32-bit signed integer).
func (c *Client) WriteInt(tagName string, val int64) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteInt: nil client")
	}
	data := binary.LittleEndian.AppendUint32(nil, uint32(val))
	return c.plc.WriteTag(tagName, TypeDINT, data)
}

// WriteFloat writes a floating-point value to a tag.
// Writes as REAL (32-bit float).
func (c *Client) WriteFloat(tagName string, val float64) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteFloat: nil client")
	}
	data := binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(val)))
	return c.plc.WriteTag(tagName, TypeREAL, data)
}

// WriteString writes a string value to a tag.
// Writes as Logix STRING (4-byte length prefix + character data).
func (c *Client) WriteString(tagName string, val string) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteString: nil client")
	}
	strBytes := []byte(val)
	data := binary.LittleEndian.AppendUint32(nil, uint32(len(strBytes)))
	data = append(data, strBytes...)
	return c.plc.WriteTag(tagName, TypeSTRING, data)
}

// WriteArray writes an array of atomic values of the same CIP type to tag,
// splitting the request into Write Tag Fragmented (service 0x53) fragments
// when the encoded payload is too large for a single message. values must
// all be representable as dataType (see encodeAtomicValue).
func (c *Client) WriteArray(tagName string, dataType uint16, values []interface{}) error {
	if c == nil || c.plc == nil {
		return fmt.Errorf("WriteArray: nil client")
	}
	if len(values) == 0 {
		return fmt.Errorf("WriteArray: no values")
	}

	elementSize := TypeSize(dataType)
	if elementSize <= 0 {
		return fmt.Errorf("WriteArray: unknown element size for type 0x%04X", dataType)
	}

	data := make([]byte, 0, elementSize*len(values))
	for i, v := range values {
		encoded, err := encodeAtomicValue(dataType, v)
		if err != nil {
			return fmt.Errorf("WriteArray: element %d: %w", i, err)
		}
		data = append(data, encoded...)
	}

	return c.plc.WriteTagFragmented(tagName, dataType, elementSize, data, uint16(len(values)))
}

// encodeAtomicValue packs a single Go value into dataType's wire encoding,
// the per-element counterpart to encodeWriteValue's type inference.
func encodeAtomicValue(dataType uint16, value interface{}) ([]byte, error) {
	switch dataType {
	case TypeBOOL:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("value %v is not a bool", value)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case TypeREAL, TypeLREAL:
		f, err := toFloat64(value)
		if err != nil {
			return nil, err
		}
		return cip.PackFloat(dataType, f)

	default:
		i, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		if dataType == TypeUSINT || dataType == TypeUINT || dataType == TypeUDINT || dataType == TypeULINT {
			return cip.PackUint(dataType, uint64(i))
		}
		return cip.PackInt(dataType, i)
	}
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", value, value)
	}
}

func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not a float", value, value)
	}
}

// elementCountFromBytes estimates the element count of a read result from
// its raw byte length and base type. Returns 1 for structures and unknown
// types, where the caller has no fixed-width element to divide by.
func elementCountFromBytes(dataType uint16, data []byte) int {
	baseType := dataType & 0x0FFF
	elemSize := TypeSize(baseType)
	if elemSize <= 0 || len(data) == 0 {
		return 1
	}
	count := len(data) / elemSize
	if count < 1 {
		return 1
	}
	return count
}
