package descriptors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"
)

// Statically placed header, built the way firmware embeds a default region.
var staticHeader = NewHeader(2, 1, 0x1000_0020)

func TestStaticHeader(t *testing.T) {
	if !staticHeader.IsChecksumValid() {
		t.Fatalf("static header checksum 0x%08x invalid", staticHeader.HeaderChecksum)
	}
	if err := staticHeader.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "header_test",
		Level: hclog.Trace,
	})

	const base = 0x0800_0000

	for n := uint32(1); n <= 8; n++ {
		for a := uint32(0); a < n; a++ {
			t.Run(fmt.Sprintf("slots=%d/active=%d", n, a), func(t *testing.T) {
				h := NewHeader(n, a, base+HeaderSize)
				if !h.IsChecksumValid() {
					t.Fatalf("IsChecksumValid() = false for fresh header")
				}

				raw := h.Bytes()
				logger.Trace("packed header", "hex", fmt.Sprintf("%x", raw[:]))

				mem := &Region{Base: base, Data: raw[:]}
				parsed, err := ParseHeader(mem, base)
				if err != nil {
					t.Fatalf("ParseHeader() error = %v", err)
				}
				if diff := cmp.Diff(h, parsed); diff != "" {
					t.Errorf("ParseHeader() mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestHeaderFields(t *testing.T) {
	h := NewHeader(3, 2, 0x2000_0100)

	if h.Signature != Signature {
		t.Errorf("Signature = 0x%08x, want 0x%08x", h.Signature, Signature)
	}
	if h.DescriptorVersion != DescriptorVersion {
		t.Errorf("DescriptorVersion = %v, want %v", h.DescriptorVersion, DescriptorVersion)
	}
	if h.DescriptorHeaderSizeBytes != HeaderSize {
		t.Errorf("DescriptorHeaderSizeBytes = %d, want %d", h.DescriptorHeaderSizeBytes, HeaderSize)
	}
	if h.AppDescriptorSizeBytes != AppDescriptorSize {
		t.Errorf("AppDescriptorSizeBytes = %d, want %d", h.AppDescriptorSizeBytes, AppDescriptorSize)
	}
	if got, want := h.SlotAddress(2), uint32(0x2000_0100+2*AppDescriptorSize); got != want {
		t.Errorf("SlotAddress(2) = 0x%08x, want 0x%08x", got, want)
	}

	raw := h.Bytes()
	// Signature is the first field on the wire, little-endian
	if raw[0] != 0x22 || raw[1] != 0x22 || raw[2] != 0x22 || raw[3] != 0x22 {
		t.Errorf("signature bytes = %x", raw[0:4])
	}
	// active slot at offset 24
	if raw[24] != 2 {
		t.Errorf("active slot byte = %d, want 2", raw[24])
	}
}

func TestHeaderSingleByteCorruption(t *testing.T) {
	const base = 0x1000
	h := NewHeader(4, 1, base+HeaderSize)

	for i := 0; i < HeaderSize; i++ {
		t.Run(fmt.Sprintf("byte_%d", i), func(t *testing.T) {
			raw := h.Bytes()
			raw[i] ^= 0xFF

			corrupted, err := UnpackHeader(raw[:])
			if err != nil {
				t.Fatalf("UnpackHeader() error = %v", err)
			}
			if corrupted.IsChecksumValid() {
				t.Fatalf("IsChecksumValid() = true after flipping byte %d", i)
			}

			_, err = ParseHeader(&Region{Base: base, Data: raw[:]}, base)
			if i < 4 {
				// Signature is checked before the checksum
				if !errors.Is(err, ErrInvalidSignature) {
					t.Errorf("ParseHeader() error = %v, want %v", err, ErrInvalidSignature)
				}
				return
			}

			var crcErr *HeaderChecksumError
			if !errors.As(err, &crcErr) {
				t.Fatalf("ParseHeader() error = %v, want *HeaderChecksumError", err)
			}
			if crcErr.Found == crcErr.Expected {
				t.Errorf("found == expected == 0x%08x", crcErr.Found)
			}
			if !errors.Is(err, ErrInvalidHeaderChecksum) {
				t.Errorf("errors.Is(%v, ErrInvalidHeaderChecksum) = false", err)
			}
		})
	}
}

func TestHeaderInvalidSignature(t *testing.T) {
	// Remaining content is irrelevant once the signature is wrong
	for _, fill := range []byte{0x00, 0x22, 0xFF} {
		t.Run(fmt.Sprintf("fill_%02x", fill), func(t *testing.T) {
			mem := NewRegion(0, HeaderSize)
			for i := range mem.Data {
				mem.Data[i] = fill
			}
			mem.Data[0] = 0x21

			if _, err := ParseHeader(mem, 0); !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("ParseHeader() error = %v, want %v", err, ErrInvalidSignature)
			}
		})
	}

	// A valid header with the signature swapped still fails on signature
	h := NewHeader(1, 0, HeaderSize)
	h.Signature = 0x1111_1111
	h.HeaderChecksum = h.ComputeChecksum()
	raw := h.Bytes()
	if _, err := ParseHeader(&Region{Data: raw[:]}, 0); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("ParseHeader() error = %v, want %v", err, ErrInvalidSignature)
	}
}

func TestHeaderValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		header func() Header
		want   error
	}{
		{
			name: "bad signature and bad checksum",
			header: func() Header {
				h := NewHeader(0, 5, 0)
				h.Signature = 0
				h.HeaderChecksum++
				return h
			},
			want: ErrInvalidSignature,
		},
		{
			name: "bad checksum and zero slots",
			header: func() Header {
				h := NewHeader(0, 0, 0)
				h.HeaderChecksum++
				return h
			},
			want: ErrInvalidHeaderChecksum,
		},
		{
			name: "zero slots and active out of range",
			header: func() Header {
				return NewHeader(0, 3, 0)
			},
			want: ErrInvalidSlotCount,
		},
		{
			name: "active equals slot count",
			header: func() Header {
				return NewHeader(2, 2, 0)
			},
			want: ErrInvalidAppSlot,
		},
		{
			name: "valid",
			header: func() Header {
				return NewHeader(2, 1, 0)
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.header().Bytes()
			_, err := ParseHeader(&Region{Data: raw[:]}, 0)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ParseHeader() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseHeader() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHeaderOutOfBounds(t *testing.T) {
	mem := NewRegion(0x1000, HeaderSize-1)

	_, err := ParseHeader(mem, 0x1000)
	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("ParseHeader() error = %v, want *AccessError", err)
	}
	if accessErr.Address != 0x1000 || accessErr.Length != HeaderSize {
		t.Errorf("AccessError = %+v", accessErr)
	}
}

func TestUnpackHeaderSize(t *testing.T) {
	for _, n := range []int{0, HeaderSize - 1, HeaderSize + 1} {
		if _, err := UnpackHeader(make([]byte, n)); err == nil {
			t.Errorf("UnpackHeader(%d bytes) expected error", n)
		}
	}
}
