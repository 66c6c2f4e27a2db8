// Package checkpoint reads and writes tensors in the safetensors layout:
// an 8 byte little-endian header length, a JSON header, then raw tensor data.
package checkpoint

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

var ErrTensorNotFound = errors.New("tensor not found in checkpoint")

const maxHeaderSize = 100 << 20

type Tensor struct {
	Shape []int
	Data  []float64
}

// Rows and Cols describe a 2-d tensor.
func (t *Tensor) Rows() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

func (t *Tensor) Cols() int {
	if len(t.Shape) < 2 {
		return 1
	}
	n := 1
	for _, d := range t.Shape[1:] {
		n *= d
	}
	return n
}

type entry struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

type File struct {
	path       string
	dataOffset int64
	entries    map[string]entry
}

// Open parses the header only; tensor data is read on demand.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint: %w", err)
	}
	defer f.Close()

	var headerLen uint64
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("reading header length: %w", err)
	}
	if headerLen == 0 || headerLen > maxHeaderSize {
		return nil, fmt.Errorf("invalid header length %d", headerLen)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(header, &raw); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	entries := make(map[string]entry, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}
		var e entry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, fmt.Errorf("decoding tensor %s: %w", name, err)
		}
		entries[name] = e
	}
	return &File{path: path, dataOffset: 8 + int64(headerLen), entries: entries}, nil
}

func (f *File) Names() []string {
	names := make([]string, 0, len(f.entries))
	for n := range f.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f *File) Has(name string) bool {
	_, ok := f.entries[name]
	return ok
}

// Tensor decodes one tensor into float64 values.
func (f *File) Tensor(name string) (*Tensor, error) {
	e, ok := f.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	width, err := dtypeWidth(e.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	count := 1
	for _, d := range e.Shape {
		count *= d
	}
	size := e.DataOffsets[1] - e.DataOffsets[0]
	if size != int64(count*width) {
		return nil, fmt.Errorf("tensor %s: data size %d does not match shape %v", name, size, e.Shape)
	}

	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint: %w", err)
	}
	defer fh.Close()

	buf := make([]byte, size)
	if _, err := fh.ReadAt(buf, f.dataOffset+e.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("reading tensor %s: %w", name, err)
	}

	data := make([]float64, count)
	for i := range data {
		data[i] = decode(e.DType, buf[i*width:(i+1)*width])
	}
	return &Tensor{Shape: append([]int(nil), e.Shape...), Data: data}, nil
}

func dtypeWidth(dtype string) (int, error) {
	switch dtype {
	case "F64":
		return 8, nil
	case "F32":
		return 4, nil
	case "F16", "BF16":
		return 2, nil
	}
	return 0, fmt.Errorf("unsupported dtype %q", dtype)
}

func decode(dtype string, b []byte) float64 {
	switch dtype {
	case "F64":
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case "F32":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case "BF16":
		return float64(math.Float32frombits(uint32(binary.LittleEndian.Uint16(b)) << 16))
	default:
		return halfToFloat(binary.LittleEndian.Uint16(b))
	}
}

func halfToFloat(h uint16) float64 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff
	switch {
	case exp == 0 && frac == 0:
		return float64(math.Float32frombits(sign))
	case exp == 0:
		// subnormal
		v := float64(frac) / 1024 * math.Pow(2, -14)
		if sign != 0 {
			v = -v
		}
		return v
	case exp == 0x1f:
		return float64(math.Float32frombits(sign | 0x7f800000 | frac<<13))
	}
	return float64(math.Float32frombits(sign | (exp+112)<<23 | frac<<13))
}

// Write stores tensors as F32 in name order.
func Write(path string, tensors map[string]*Tensor) error {
	names := make([]string, 0, len(tensors))
	for n := range tensors {
		names = append(names, n)
	}
	sort.Strings(names)

	header := make(map[string]entry, len(names))
	var offset int64
	for _, n := range names {
		t := tensors[n]
		size := int64(len(t.Data) * 4)
		header[n] = entry{DType: "F32", Shape: t.Shape, DataOffsets: [2]int64{offset, offset + size}}
		offset += size
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	out := bufio.NewWriter(f)

	if err := binary.Write(out, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return err
	}
	if _, err := out.Write(headerBytes); err != nil {
		return err
	}
	buf := make([]byte, 4)
	for _, n := range names {
		for _, v := range tensors[n].Data {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
			if _, err := out.Write(buf); err != nil {
				return err
			}
		}
	}
	if err := out.Flush(); err != nil {
		return err
	}
	return f.Close()
}
